package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// MemoryStore keeps everything in process.  A single mutex serialises
// writers, which gives the same guarantees the MySQL store gets from row
// locks and unique indexes.
type MemoryStore struct {
	mu sync.RWMutex

	ponds     map[uint64]model.Pond
	slots     map[uint64]model.TimeSlot
	events    map[uint64]model.Event
	bookings  map[string]*model.Booking
	checkIns  map[string]*model.CheckInRecord
	rods      map[string]*model.RodTag
	nextSeat  uint64
	bookOrder []string
	ciOrder   []string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ponds:    make(map[uint64]model.Pond),
		slots:    make(map[uint64]model.TimeSlot),
		events:   make(map[uint64]model.Event),
		bookings: make(map[string]*model.Booking),
		checkIns: make(map[string]*model.CheckInRecord),
		rods:     make(map[string]*model.RodTag),
	}
}

// PutPond inserts or replaces a pond.
func (s *MemoryStore) PutPond(p model.Pond) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ponds[p.ID] = p
}

// PutTimeSlot inserts or replaces a time slot.
func (s *MemoryStore) PutTimeSlot(t model.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[t.ID] = t
}

// PutEvent inserts or replaces an event.
func (s *MemoryStore) PutEvent(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.PondIDs = append([]uint64(nil), e.PondIDs...)
	s.events[e.ID] = e
}

func (s *MemoryStore) GetPond(_ context.Context, id uint64) (*model.Pond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ponds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetTimeSlot(_ context.Context, id uint64) (*model.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) ListTimeSlots(_ context.Context) ([]model.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TimeSlot, 0, len(s.slots))
	for _, t := range s.slots {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartMin < out[j].StartMin })
	return out, nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.PondIDs = append([]uint64(nil), e.PondIDs...)
	return &e, nil
}

func (s *MemoryStore) ListPondBookings(_ context.Context, pondID uint64, day string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pondBookingsLocked(pondID, day), nil
}

func (s *MemoryStore) ListEventBookings(_ context.Context, eventID uint64) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventBookingsLocked(eventID), nil
}

func (s *MemoryStore) pondBookingsLocked(pondID uint64, day string) []model.Booking {
	var out []model.Booking
	for _, id := range s.bookOrder {
		b := s.bookings[id]
		if b.Type == model.BookingPond && b.PondID == pondID && b.Day == day {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

func (s *MemoryStore) eventBookingsLocked(eventID uint64) []model.Booking {
	var out []model.Booking
	for _, id := range s.bookOrder {
		b := s.bookings[id]
		if b.Type == model.BookingEvent && b.EventID != nil && *b.EventID == eventID {
			out = append(out, cloneBooking(b))
		}
	}
	return out
}

// CreateBooking admits and stores b atomically.  Seat IDs are assigned
// on success.
func (s *MemoryStore) CreateBooking(_ context.Context, b *model.Booking, admit AdmitFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []model.Booking
	switch b.Type {
	case model.BookingEvent:
		if b.EventID == nil {
			return ErrNotFound
		}
		if _, ok := s.events[*b.EventID]; !ok {
			return ErrNotFound
		}
		existing = s.eventBookingsLocked(*b.EventID)
	default:
		if _, ok := s.ponds[b.PondID]; !ok {
			return ErrNotFound
		}
		existing = s.pondBookingsLocked(b.PondID, b.Day)
	}
	if admit != nil {
		if err := admit(existing); err != nil {
			return err
		}
	}
	if _, dup := s.bookings[b.ID]; dup {
		return ErrConflict
	}
	numbers := make(map[int]bool, len(b.Seats))
	for _, seat := range b.Seats {
		if numbers[seat.Number] || s.credentialInUseLocked(seat.Credential) {
			return ErrConflict
		}
		numbers[seat.Number] = true
	}
	for i := range b.Seats {
		s.nextSeat++
		b.Seats[i].ID = s.nextSeat
		b.Seats[i].BookingID = b.ID
	}
	cp := cloneBooking(b)
	s.bookings[b.ID] = &cp
	s.bookOrder = append(s.bookOrder, b.ID)
	return nil
}

func (s *MemoryStore) credentialInUseLocked(cred string) bool {
	for _, b := range s.bookings {
		for _, seat := range b.Seats {
			if seat.Credential == cred {
				return true
			}
		}
	}
	return false
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneBooking(b)
	return &cp, nil
}

// FindSeatByCredential resolves a seat credential.  The returned seat
// points into the returned booking.
func (s *MemoryStore) FindSeatByCredential(_ context.Context, cred string) (*model.Booking, *model.Seat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		for i := range b.Seats {
			if b.Seats[i].Credential == cred {
				cp := cloneBooking(b)
				return &cp, &cp.Seats[i], nil
			}
		}
	}
	return nil, nil, ErrNotFound
}

// DeleteBooking removes a booking, voiding open check-ins and active rod
// tags of its seats.  Check-in and rod history is kept.
func (s *MemoryStore) DeleteBooking(_ context.Context, id string, at time.Time) (*CancelResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	res := &CancelResult{}
	cp := cloneBooking(b)
	res.Booking = &cp
	for _, rec := range s.checkIns {
		if rec.BookingID == id && rec.Status == model.CheckInActive {
			rec.Status = model.CheckInVoided
			rec.CheckOutTime = ptrTime(at)
			res.VoidedCheckIns++
		}
	}
	for _, tag := range s.rods {
		if tag.BookingID == id && tag.Active {
			tag.Active = false
			tag.DeactivatedAt = ptrTime(at)
			res.DeactivatedRod++
		}
	}
	delete(s.bookings, id)
	for i, bid := range s.bookOrder {
		if bid == id {
			s.bookOrder = append(s.bookOrder[:i], s.bookOrder[i+1:]...)
			break
		}
	}
	return res, nil
}

// AssignSeat applies mutate to the seat under the store lock.
func (s *MemoryStore) AssignSeat(_ context.Context, bookingID string, seatNumber int, mutate SeatMutator) (*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, ErrNotFound
	}
	seat := b.SeatByNumber(seatNumber)
	if seat == nil {
		return nil, ErrNotFound
	}
	work := cloneSeat(*seat)
	if err := mutate(&work); err != nil {
		return nil, err
	}
	seat.AssignedIdentity = work.AssignedIdentity
	seat.AssignedBy = work.AssignedBy
	seat.AssignedAt = work.AssignedAt
	seat.Status = work.Status
	out := cloneSeat(*seat)
	return &out, nil
}

func (s *MemoryStore) seatLocked(seatID uint64) (*model.Booking, *model.Seat) {
	for _, b := range s.bookings {
		if seat := b.SeatByID(seatID); seat != nil {
			return b, seat
		}
	}
	return nil, nil
}

func (s *MemoryStore) activeCheckInLocked(seatID uint64) *model.CheckInRecord {
	for _, rec := range s.checkIns {
		if rec.SeatID == seatID && rec.Status == model.CheckInActive {
			return rec
		}
	}
	return nil
}

// ActiveCheckIn returns the open check-in for a seat.
func (s *MemoryStore) ActiveCheckIn(_ context.Context, seatID uint64) (*model.CheckInRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.activeCheckInLocked(seatID)
	if rec == nil {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) GetCheckIn(_ context.Context, id string) (*model.CheckInRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.checkIns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ListCheckIns returns the check-in history of a booking in insertion
// order.
func (s *MemoryStore) ListCheckIns(_ context.Context, bookingID string) ([]model.CheckInRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.CheckInRecord
	for _, id := range s.ciOrder {
		if rec := s.checkIns[id]; rec.BookingID == bookingID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// CreateCheckIn opens a check-in for rec.SeatID.  ErrConflict is returned
// when the seat already has an open record and ErrStaleState when the
// seat was marked as a no-show.
func (s *MemoryStore) CreateCheckIn(_ context.Context, rec *model.CheckInRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, seat := s.seatLocked(rec.SeatID)
	if seat == nil {
		return ErrNotFound
	}
	if s.activeCheckInLocked(rec.SeatID) != nil {
		return ErrConflict
	}
	if seat.Status == model.SeatNoShow {
		return ErrStaleState
	}
	cp := *rec
	cp.Status = model.CheckInActive
	s.checkIns[cp.ID] = &cp
	s.ciOrder = append(s.ciOrder, cp.ID)
	seat.Status = model.SeatCheckedIn
	seat.CheckedInAt = ptrTime(rec.CheckInTime)
	seat.CheckedOutAt = nil
	rec.Status = model.CheckInActive
	return nil
}

// CloseCheckIn checks a record out.  ErrConflict is returned when the
// record is already checked out and ErrStaleState for no-show or voided
// records.  The current record is returned alongside either error.
func (s *MemoryStore) CloseCheckIn(_ context.Context, id, by string, at time.Time) (*model.CheckInRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.checkIns[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch rec.Status {
	case model.CheckInActive:
	case model.CheckInCheckedOut:
		cp := *rec
		return &cp, ErrConflict
	default:
		cp := *rec
		return &cp, ErrStaleState
	}
	rec.Status = model.CheckInCheckedOut
	rec.CheckOutTime = ptrTime(at)
	rec.CheckedOutBy = ptrString(by)
	if _, seat := s.seatLocked(rec.SeatID); seat != nil {
		seat.Status = model.SeatCheckedOut
		seat.CheckedOutAt = ptrTime(at)
	}
	cp := *rec
	return &cp, nil
}

// MarkNoShow records a terminal no-show for rec.SeatID.  When the seat is
// already a no-show the existing record is returned with created=false.
// ErrStaleState is returned for seats that were ever checked in.
func (s *MemoryStore) MarkNoShow(_ context.Context, rec *model.CheckInRecord) (*model.CheckInRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, seat := s.seatLocked(rec.SeatID)
	if seat == nil {
		return nil, false, ErrNotFound
	}
	switch seat.Status {
	case model.SeatNoShow:
		for _, id := range s.ciOrder {
			if prev := s.checkIns[id]; prev.SeatID == rec.SeatID && prev.Status == model.CheckInNoShow {
				cp := *prev
				return &cp, false, nil
			}
		}
		return nil, false, ErrStaleState
	case model.SeatCheckedIn, model.SeatCheckedOut:
		return nil, false, ErrStaleState
	}
	if s.activeCheckInLocked(rec.SeatID) != nil {
		return nil, false, ErrStaleState
	}
	cp := *rec
	cp.Status = model.CheckInNoShow
	s.checkIns[cp.ID] = &cp
	s.ciOrder = append(s.ciOrder, cp.ID)
	seat.Status = model.SeatNoShow
	out := cp
	return &out, true, nil
}

// FindRodByCredential resolves a rod credential regardless of whether the
// tag is still active.
func (s *MemoryStore) FindRodByCredential(_ context.Context, cred string) (*model.RodTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tag := range s.rods {
		if tag.Credential == cred {
			cp := *tag
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListRods returns every tag issued to a seat ordered by version.
func (s *MemoryStore) ListRods(_ context.Context, seatID uint64) ([]model.RodTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.RodTag
	for _, tag := range s.rods {
		if tag.SeatID == seatID {
			out = append(out, *tag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// IssueRod runs decide for the seat under the store lock and, when it
// returns a tag, deactivates the current one and inserts the new one.
func (s *MemoryStore) IssueRod(_ context.Context, seatID uint64, at time.Time, decide RodDecider) (*model.RodTag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seat := s.seatLocked(seatID); seat == nil {
		return nil, ErrNotFound
	}
	var current *model.RodTag
	latest := 0
	for _, tag := range s.rods {
		if tag.SeatID != seatID {
			continue
		}
		if tag.Version > latest {
			latest = tag.Version
		}
		if tag.Active {
			current = tag
		}
	}
	var view *model.RodTag
	if current != nil {
		cp := *current
		view = &cp
	}
	next, err := decide(view, latest, s.activeCheckInLocked(seatID) != nil)
	if err != nil || next == nil {
		return nil, err
	}
	for _, tag := range s.rods {
		if tag.Credential == next.Credential || (tag.SeatID == seatID && tag.Version == next.Version) {
			return nil, ErrConflict
		}
	}
	if current != nil {
		current.Active = false
		current.DeactivatedAt = ptrTime(at)
	}
	cp := *next
	cp.SeatID = seatID
	cp.Active = true
	s.rods[cp.ID] = &cp
	out := cp
	return &out, nil
}

func cloneBooking(b *model.Booking) model.Booking {
	cp := *b
	cp.Seats = make([]model.Seat, len(b.Seats))
	for i, seat := range b.Seats {
		cp.Seats[i] = cloneSeat(seat)
	}
	return cp
}

func cloneSeat(s model.Seat) model.Seat {
	cp := s
	if s.AssignedIdentity != nil {
		cp.AssignedIdentity = ptrString(*s.AssignedIdentity)
	}
	if s.AssignedBy != nil {
		cp.AssignedBy = ptrString(*s.AssignedBy)
	}
	if s.AssignedAt != nil {
		cp.AssignedAt = ptrTime(*s.AssignedAt)
	}
	return cp
}
