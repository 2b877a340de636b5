package service

import (
	"fmt"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"
)

// VenueService is the read-only catalog loaded at startup.
type VenueService struct {
	venues []models.Venue
	byID   map[string]int
}

func NewVenueService(venues []models.Venue) *VenueService {
	s := &VenueService{
		venues: make([]models.Venue, len(venues)),
		byID:   make(map[string]int, len(venues)),
	}
	copy(s.venues, venues)
	for i, v := range s.venues {
		s.byID[v.ID] = i
	}
	return s
}

func (s *VenueService) List() []models.Venue {
	out := make([]models.Venue, len(s.venues))
	copy(out, s.venues)
	return out
}

func (s *VenueService) Get(id string) (models.Venue, error) {
	i, ok := s.byID[id]
	if !ok {
		return models.Venue{}, fmt.Errorf("%w: %s", domain.ErrVenueNotFound, id)
	}
	v := s.venues[i]
	v.TimeSlots = append([]string(nil), v.TimeSlots...)
	return v, nil
}
