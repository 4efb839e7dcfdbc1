package domain

import (
	"cmp"
	"fmt"
)

// Version identifies a release as year.month.number.
type Version struct {
	Year   int
	Month  int
	Number int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Year, v.Month, v.Number)
}

// Compare returns -1, 0 or +1 ordering by year, then month, then number.
func (v Version) Compare(other Version) int {
	if c := cmp.Compare(v.Year, other.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Month, other.Month); c != 0 {
		return c
	}
	return cmp.Compare(v.Number, other.Number)
}
