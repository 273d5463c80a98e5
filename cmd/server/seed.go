package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

// seedDemo loads a small fishery into the memory store: three ponds, the
// usual daily slots and an open competition a week out.
func seedDemo(s *repository.MemoryStore, now time.Time) {
	s.PutPond(model.Pond{
		ID: 1, Name: "Lily Pond", Capacity: 12, Shape: model.ShapeRectangle,
		Distribution: [4]int{4, 2, 4, 2}, BookingEnabled: true,
		PricePerSeat: decimal.RequireFromString("12.00"), CreatedAt: now, UpdatedAt: now,
	})
	s.PutPond(model.Pond{
		ID: 2, Name: "Carp Square", Capacity: 8, Shape: model.ShapeSquare,
		Distribution: [4]int{2, 2, 2, 2}, BookingEnabled: true,
		PricePerSeat: decimal.RequireFromString("15.50"), CreatedAt: now, UpdatedAt: now,
	})
	s.PutPond(model.Pond{
		ID: 3, Name: "Round Lake", Capacity: 10, Shape: model.ShapeCircle,
		Distribution: [4]int{10, 0, 0, 0}, BookingEnabled: true,
		PricePerSeat: decimal.RequireFromString("9.00"), CreatedAt: now, UpdatedAt: now,
	})
	for i, r := range []struct{ label, rng string }{
		{"Morning", "07:00 - 11:00"},
		{"Afternoon", "12:00 - 16:00"},
		{"Evening", "5:00 pm to 9:00 pm"},
	} {
		if ts, err := model.NewTimeSlot(uint64(i+1), r.label, r.rng); err == nil {
			s.PutTimeSlot(ts)
		}
	}
	s.PutEvent(model.Event{
		ID: 1, Name: "Autumn Cup", Date: model.DayKey(now.AddDate(0, 0, 7), now.Location()),
		StartMin: 8 * 60, EndMin: 14 * 60, MaxParticipants: 20, PondIDs: []uint64{1},
		BookingOpensAt: now.AddDate(0, 0, -1), Status: model.EventOpen,
		EntryFee: decimal.RequireFromString("25.00"),
	})
}
