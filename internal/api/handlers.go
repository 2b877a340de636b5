package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/domain"
	"github.com/Harsha6202/Museum-reservation-using-chatbot/internal/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// SlotReader serves availability, falling back to the cached snapshot when
// the store is down.
type SlotReader interface {
	SlotsWithFallback(ctx context.Context, date time.Time, venue models.Venue) ([]models.SlotAvailability, bool, error)
}

type AvailabilityService struct {
	catalog domain.Catalog
	slots   SlotReader
}

func NewAvailabilityService(catalog domain.Catalog, slots SlotReader) *AvailabilityService {
	return &AvailabilityService{catalog: catalog, slots: slots}
}

func (s *AvailabilityService) ListVenues(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	venues := s.catalog.List()
	out := make([]any, 0, len(venues))
	for _, v := range venues {
		out = append(out, venueValue(v))
	}

	resp, err := structpb.NewStruct(map[string]any{"venues": out})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode venues")
	}
	return resp, nil
}

func (s *AvailabilityService) GetSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	venueID := strings.TrimSpace(fields["venue_id"].GetStringValue())
	if venueID == "" {
		return nil, status.Error(codes.InvalidArgument, "venue_id is required")
	}

	dateStr := strings.TrimSpace(fields["date"].GetStringValue())
	if dateStr == "" {
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	date, err := models.ParseDate(dateStr)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid date format; expected YYYY-MM-DD")
	}

	venue, err := s.catalog.Get(venueID)
	if err != nil {
		return nil, status.Error(codes.NotFound, "venue not found")
	}

	slots, stale, err := s.slots.SlotsWithFallback(ctx, date, venue)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, status.Error(codes.Unavailable, "availability temporarily unavailable")
		}
		return nil, status.Error(codes.Internal, "failed to compute availability")
	}

	list := make([]any, 0, len(slots))
	for _, sl := range slots {
		list = append(list, map[string]any{
			"time":         sl.Time,
			"available":    sl.Available,
			"total":        sl.Total,
			"is_available": sl.IsAvailable,
		})
	}

	resp, err := structpb.NewStruct(map[string]any{
		"venue_id": venue.ID,
		"date":     dateStr,
		"stale":    stale,
		"slots":    list,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode slots")
	}
	return resp, nil
}

func venueValue(v models.Venue) map[string]any {
	slots := make([]any, 0, len(v.TimeSlots))
	for _, t := range v.TimeSlots {
		slots = append(slots, t)
	}
	return map[string]any{
		"id":         v.ID,
		"name":       v.Name,
		"location":   v.Location,
		"capacity":   v.Capacity,
		"time_slots": slots,
		"pricing": map[string]any{
			"adult":   v.Pricing.Adult,
			"child":   v.Pricing.Child,
			"senior":  v.Pricing.Senior,
			"tourist": v.Pricing.Tourist,
		},
	}
}
