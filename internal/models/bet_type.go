package models

import "fmt"

// BetType represents a pari-mutuel bet type
type BetType string

const (
	BetTypeWin      BetType = "win"
	BetTypePlace    BetType = "place"
	BetTypeQuinella BetType = "quinella"
	BetTypeExacta   BetType = "exacta"
	BetTypeTrifecta BetType = "trifecta"
)

// AllBetTypes lists every supported bet type
var AllBetTypes = []BetType{
	BetTypeWin,
	BetTypePlace,
	BetTypeQuinella,
	BetTypeExacta,
	BetTypeTrifecta,
}

// ParseBetType converts a string into a BetType
func ParseBetType(s string) (BetType, error) {
	bt := BetType(s)
	if !bt.IsValid() {
		return "", fmt.Errorf("unknown bet type %q", s)
	}
	return bt, nil
}

// IsValid reports whether the bet type is one of the supported types
func (b BetType) IsValid() bool {
	switch b {
	case BetTypeWin, BetTypePlace, BetTypeQuinella, BetTypeExacta, BetTypeTrifecta:
		return true
	}
	return false
}

// SelectionSize returns the number of horses a combination of this type names
func (b BetType) SelectionSize() int {
	switch b {
	case BetTypeWin, BetTypePlace:
		return 1
	case BetTypeQuinella, BetTypeExacta:
		return 2
	case BetTypeTrifecta:
		return 3
	}
	return 0
}

// Ordered reports whether finishing order matters for this bet type
func (b BetType) Ordered() bool {
	return b == BetTypeExacta || b == BetTypeTrifecta
}
