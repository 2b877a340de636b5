package models

// SlotAvailability is derived per request and never stored.
type SlotAvailability struct {
	Time        string `json:"time"`
	Available   int    `json:"available"`
	Total       int    `json:"total"`
	IsAvailable bool   `json:"isAvailable"`
}

// AnyAvailable reports whether at least one slot can still be booked.
func AnyAvailable(slots []SlotAvailability) bool {
	for _, s := range slots {
		if s.IsAvailable {
			return true
		}
	}
	return false
}

// FindSlot returns the entry for label.
func FindSlot(slots []SlotAvailability, label string) (SlotAvailability, bool) {
	for _, s := range slots {
		if s.Time == label {
			return s, true
		}
	}
	return SlotAvailability{}, false
}
