package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Combination identifies the horse numbers a bet covers. It holds up to
// three numbers and is comparable, so it can key maps when joining
// probability tables against market quotes.
type Combination struct {
	nums [3]int
	size int
}

// NewCombination builds a combination from horse numbers in finishing order
func NewCombination(numbers ...int) Combination {
	var c Combination
	for _, n := range numbers {
		if c.size >= len(c.nums) {
			break
		}
		c.nums[c.size] = n
		c.size++
	}
	return c
}

// ParseCombination parses the dash-separated form, e.g. "3-7" or "3-7-12"
func ParseCombination(s string) (Combination, error) {
	parts := strings.Split(s, "-")
	if len(parts) == 0 || len(parts) > 3 {
		return Combination{}, fmt.Errorf("invalid combination %q", s)
	}
	numbers := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return Combination{}, fmt.Errorf("invalid horse number %q in combination %q", p, s)
		}
		numbers = append(numbers, n)
	}
	return NewCombination(numbers...), nil
}

// Size returns the number of horses in the combination
func (c Combination) Size() int {
	return c.size
}

// Numbers returns the horse numbers in stored order
func (c Combination) Numbers() []int {
	out := make([]int, c.size)
	copy(out, c.nums[:c.size])
	return out
}

// Sorted returns a copy with the numbers in ascending order. Unordered
// bet types (quinella) use the sorted form as their canonical key.
func (c Combination) Sorted() Combination {
	s := c
	for i := 1; i < s.size; i++ {
		for j := i; j > 0 && s.nums[j] < s.nums[j-1]; j-- {
			s.nums[j], s.nums[j-1] = s.nums[j-1], s.nums[j]
		}
	}
	return s
}

// String renders the dash-separated form used for keys and persistence
func (c Combination) String() string {
	parts := make([]string, c.size)
	for i := 0; i < c.size; i++ {
		parts[i] = strconv.Itoa(c.nums[i])
	}
	return strings.Join(parts, "-")
}

// MarshalJSON encodes the combination as its dash-separated string
func (c Combination) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes the dash-separated string form
func (c *Combination) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCombination(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
