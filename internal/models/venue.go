package models

import "fmt"

// Venue is a bookable museum loaded from the catalog file.
type Venue struct {
	ID           string   `json:"id" yaml:"id" toml:"id"`
	Name         string   `json:"name" yaml:"name" toml:"name"`
	Description  string   `json:"description,omitempty" yaml:"description" toml:"description"`
	Location     string   `json:"location,omitempty" yaml:"location" toml:"location"`
	State        string   `json:"state,omitempty" yaml:"state" toml:"state"`
	OpeningHours string   `json:"opening_hours,omitempty" yaml:"opening_hours" toml:"opening_hours"`
	Capacity     int      `json:"capacity" yaml:"capacity" toml:"capacity"`
	TimeSlots    []string `json:"time_slots" yaml:"time_slots" toml:"time_slots"`
	Pricing      Pricing  `json:"pricing" yaml:"pricing" toml:"pricing"`
}

// HasSlot reports whether label is one of the venue's time slots.
func (v Venue) HasSlot(label string) bool {
	for _, s := range v.TimeSlots {
		if s == label {
			return true
		}
	}
	return false
}

// Pricing holds per-category ticket prices in rupees.
type Pricing struct {
	Adult   int64 `json:"adult" yaml:"adult" toml:"adult"`
	Child   int64 `json:"child" yaml:"child" toml:"child"`
	Senior  int64 `json:"senior" yaml:"senior" toml:"senior"`
	Tourist int64 `json:"tourist" yaml:"tourist" toml:"tourist"`
}

// Total returns the price of a visitor group.
func (p Pricing) Total(v VisitorCounts) int64 {
	return int64(v.Adult)*p.Adult +
		int64(v.Child)*p.Child +
		int64(v.Senior)*p.Senior +
		int64(v.Tourist)*p.Tourist
}

// VisitorCounts is the number of visitors per ticket category.
type VisitorCounts struct {
	Adult   int `json:"adult"`
	Child   int `json:"child"`
	Senior  int `json:"senior"`
	Tourist int `json:"tourist"`
}

func (v VisitorCounts) Total() int {
	return v.Adult + v.Child + v.Senior + v.Tourist
}

// Validate rejects negative counts. An all-zero group is valid here and is
// rejected by the conversation flow instead.
func (v VisitorCounts) Validate() error {
	if v.Adult < 0 || v.Child < 0 || v.Senior < 0 || v.Tourist < 0 {
		return fmt.Errorf("visitor counts must not be negative: %+v", v)
	}
	return nil
}
