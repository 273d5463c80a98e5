// Package rod issues rod tags to checked-in seats.  A rod tag is a second
// credential used when weighing catches; replacing a lost tag retires the
// old one so it can no longer be scanned.
package rod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/pond-seat-booking/internal/checkin"
	"github.com/iliyamo/pond-seat-booking/internal/credential"
	"github.com/iliyamo/pond-seat-booking/internal/domain"
	"github.com/iliyamo/pond-seat-booking/internal/logger"
	"github.com/iliyamo/pond-seat-booking/internal/model"
	"github.com/iliyamo/pond-seat-booking/internal/monitoring"
	"github.com/iliyamo/pond-seat-booking/internal/queue"
	"github.com/iliyamo/pond-seat-booking/internal/repository"
)

var (
	// ErrAlreadyIssued is returned for a non-replacement request on a seat
	// that already holds an active tag.
	ErrAlreadyIssued = &domain.Error{Kind: domain.ErrInvalidState, Op: "rod.IssueRod", Message: "rod tag already issued; request a replacement"}
	// ErrRodNotFound is returned when a rod credential matches no tag.
	ErrRodNotFound = &domain.Error{Kind: domain.ErrResourceNotFound, Op: "rod.ValidateRod", Message: "rod tag not found"}
	// ErrRodInactive is returned for superseded or voided tags.
	ErrRodInactive = &domain.Error{Kind: domain.ErrInvalidState, Op: "rod.ValidateRod", Message: "rod tag is no longer active"}
	// ErrNotCheckedIn is returned when the seat has no open check-in.
	ErrNotCheckedIn = &domain.Error{Kind: domain.ErrInvalidState, Op: "rod.IssueRod", Message: "seat is not checked in"}
)

// Store is the persistence the workflow needs.
type Store interface {
	checkin.ReadStore
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	FindRodByCredential(ctx context.Context, cred string) (*model.RodTag, error)
	ListRods(ctx context.Context, seatID uint64) ([]model.RodTag, error)
	IssueRod(ctx context.Context, seatID uint64, at time.Time, decide repository.RodDecider) (*model.RodTag, error)
}

// Validation is returned by ValidateRod.
type Validation struct {
	Tag     model.RodTag         `json:"tag"`
	Seat    model.Seat           `json:"seat"`
	Booking model.BookingSummary `json:"booking"`
}

// Workflow is the only writer of rod tags.
type Workflow struct {
	store     Store
	issuer    *credential.Issuer
	validator *checkin.Validator
	events    queue.Publisher
	log       *logger.Logger
}

// NewWorkflow returns a Workflow.  The validator resolves seat
// credentials and supplies the clock.
func NewWorkflow(store Store, issuer *credential.Issuer, validator *checkin.Validator, events queue.Publisher, log *logger.Logger) *Workflow {
	if events == nil {
		events = queue.Nop
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Workflow{store: store, issuer: issuer, validator: validator, events: events, log: log}
}

// IssueRod issues a tag to the seat behind seatCredential.  The seat must
// be checked in.  With isReplacement the active tag is retired and a new
// version issued; without it an existing active tag is an error.
func (w *Workflow) IssueRod(ctx context.Context, seatCredential, stationID string, isReplacement bool, operator string) (*model.RodTag, error) {
	const op = "rod.IssueRod"
	res, err := w.validator.Resolve(ctx, seatCredential)
	if err != nil {
		return nil, err
	}
	if res.Outcome == checkin.OutcomeNotFound {
		return nil, domain.New(domain.ErrResourceNotFound, op, "booking not found")
	}
	seat := res.Seat()
	now := w.validator.Now().UTC()

	var replaced *model.RodTag
	tag, err := w.store.IssueRod(ctx, seat.ID, now, func(current *model.RodTag, latest int, checkedIn bool) (*model.RodTag, error) {
		if !checkedIn {
			return nil, ErrNotCheckedIn
		}
		if current != nil && !isReplacement {
			return nil, ErrAlreadyIssued
		}
		replaced = current
		id := uuid.NewString()
		cred, err := w.issuer.IssueRod(id, seat.ID, latest+1)
		if err != nil {
			return nil, err
		}
		return &model.RodTag{
			ID:         id,
			Credential: cred,
			Version:    latest + 1,
			SeatID:     seat.ID,
			BookingID:  res.Booking.BookingID,
			StationID:  stationID,
			IssuedBy:   operator,
			Active:     true,
			IssuedAt:   now,
		}, nil
	})
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return nil, de
	case errors.Is(err, repository.ErrNotFound):
		return nil, domain.New(domain.ErrResourceNotFound, op, "seat no longer exists")
	case errors.Is(err, repository.ErrConflict):
		return nil, domain.Wrap(domain.ErrAlreadyProcessed, op, err)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	monitoring.RodIssued(replaced != nil)
	w.log.Info("ROD", fmt.Sprintf("rod v%d issued to booking %s seat %d at %s by %s",
		tag.Version, tag.BookingID, seat.Number, stationID, operator))
	attrs := map[string]string{"rod_id": tag.ID, "version": fmt.Sprint(tag.Version), "station": stationID}
	if replaced != nil {
		attrs["replaces"] = replaced.ID
	}
	if err := w.events.Publish(ctx, queue.Event{
		Type: queue.RodIssued, BookingID: tag.BookingID, SeatNumber: seat.Number,
		Actor: operator, OccurredAt: now, Attributes: attrs,
	}); err != nil {
		w.log.Warn("ROD", fmt.Sprintf("publish %s: %v", queue.RodIssued, err))
	}
	return tag, nil
}

// ValidateRod resolves a rod credential for the weighing station.
// Superseded tags are rejected even though they still resolve.
func (w *Workflow) ValidateRod(ctx context.Context, rodCredential string) (*Validation, error) {
	claims, err := w.issuer.Parse(rodCredential, credential.ClassRod)
	if err != nil {
		monitoring.ScanOutcome("rod", "rejected")
		return nil, err
	}
	tag, err := w.store.FindRodByCredential(ctx, rodCredential)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && tag.ID != claims.RodID) {
		monitoring.ScanOutcome("rod", "notFound")
		return nil, ErrRodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rod.ValidateRod: %w", err)
	}
	if !tag.Active {
		monitoring.ScanOutcome("rod", "inactive")
		return nil, ErrRodInactive
	}
	b, err := w.store.GetBooking(ctx, tag.BookingID)
	if errors.Is(err, repository.ErrNotFound) {
		monitoring.ScanOutcome("rod", "notFound")
		return nil, ErrRodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rod.ValidateRod: %w", err)
	}
	seat := b.SeatByID(tag.SeatID)
	if seat == nil {
		return nil, ErrRodNotFound
	}
	summary := b.Summarize(seat)
	if p, err := w.store.GetPond(ctx, b.PondID); err == nil {
		summary.PondName = p.Name
	}
	if b.EventID != nil {
		if ev, err := w.store.GetEvent(ctx, *b.EventID); err == nil {
			summary.EventName = ev.Name
		}
	}
	monitoring.ScanOutcome("rod", "valid")
	return &Validation{Tag: *tag, Seat: *seat, Booking: summary}, nil
}

// History lists every tag issued to the seat behind seatCredential.
func (w *Workflow) History(ctx context.Context, seatCredential string) ([]model.RodTag, error) {
	res, err := w.validator.Resolve(ctx, seatCredential)
	if err != nil {
		return nil, err
	}
	if res.Outcome == checkin.OutcomeNotFound {
		return nil, domain.New(domain.ErrResourceNotFound, "rod.History", "booking not found")
	}
	return w.store.ListRods(ctx, res.Seat().ID)
}
