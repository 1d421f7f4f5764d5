package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBetType(t *testing.T) {
	for _, bt := range AllBetTypes {
		parsed, err := ParseBetType(string(bt))
		require.NoError(t, err)
		assert.Equal(t, bt, parsed)
	}

	_, err := ParseBetType("superfecta")
	assert.Error(t, err)
	_, err = ParseBetType("")
	assert.Error(t, err)
}

func TestBetTypeSelectionSize(t *testing.T) {
	assert.Equal(t, 1, BetTypeWin.SelectionSize())
	assert.Equal(t, 1, BetTypePlace.SelectionSize())
	assert.Equal(t, 2, BetTypeQuinella.SelectionSize())
	assert.Equal(t, 2, BetTypeExacta.SelectionSize())
	assert.Equal(t, 3, BetTypeTrifecta.SelectionSize())
}

func TestBetTypeOrdered(t *testing.T) {
	assert.False(t, BetTypeWin.Ordered())
	assert.False(t, BetTypePlace.Ordered())
	assert.False(t, BetTypeQuinella.Ordered())
	assert.True(t, BetTypeExacta.Ordered())
	assert.True(t, BetTypeTrifecta.Ordered())
}

func TestInvalidParameterError(t *testing.T) {
	err := &InvalidParameterError{Param: "nu", Value: -1, Reason: "degrees of freedom must be positive"}
	assert.Contains(t, err.Error(), "nu")
	assert.Contains(t, err.Error(), "degrees of freedom")

	assert.True(t, IsInvalidParameter(err))
	assert.True(t, IsInvalidParameter(errors.Join(errors.New("wrapped"), err)))
	assert.False(t, IsInvalidParameter(ErrNotFound))
	assert.False(t, IsInvalidParameter(nil))
}
