// Package store is the in-memory entity store for events, venues,
// registrations and notifications. It is the only owner of those
// collections; every mutation goes through one of its methods and enforces
// the capacity and overlap invariants at the point of writing.
package store

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/google/uuid"
)

// Store holds all entity collections. The collection index is guarded by
// mu; each event and venue additionally carries its own lock, held for the
// whole check-then-write of a mutation.
type Store struct {
	now   func() time.Time
	newID func() string

	mu         sync.RWMutex
	events     map[string]*eventEntry
	eventOrder []string
	venues     map[string]*venueEntry
	venueOrder []string

	logMu         sync.RWMutex
	notifications []model.Notification
}

type eventEntry struct {
	mu            sync.RWMutex
	event         model.Event
	registrations map[string]model.Registration
}

type venueEntry struct {
	mu    sync.RWMutex
	venue model.Venue
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUID generator for new records.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
		events: make(map[string]*eventEntry),
		venues: make(map[string]*venueEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddVenue inserts a venue. Existing bookings must not overlap.
func (s *Store) AddVenue(v model.Venue) error {
	if v.ID == "" {
		return &model.ValidationError{Param: "venue.id", Reason: "must not be empty"}
	}
	if v.Capacity <= 0 {
		return &model.ValidationError{Param: "venue.capacity", Expected: "positive integer", Reason: fmt.Sprintf("got %d", v.Capacity)}
	}
	v = cloneVenue(v)
	sortBookings(v.Bookings)
	for i := 1; i < len(v.Bookings); i++ {
		if v.Bookings[i-1].Slot.Overlaps(v.Bookings[i].Slot) {
			prev := v.Bookings[i-1].Slot
			return &model.ConflictError{Resource: "venue", ID: v.ID, Reason: "seed bookings overlap", Conflict: &prev}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.venues[v.ID]; exists {
		return &model.ConflictError{Resource: "venue", ID: v.ID, Reason: "already exists"}
	}
	s.venues[v.ID] = &venueEntry{venue: v}
	s.venueOrder = append(s.venueOrder, v.ID)
	return nil
}

// AddEvent inserts an event. Its venue, when set, must already exist.
func (s *Store) AddEvent(e model.Event) error {
	if e.ID == "" {
		return &model.ValidationError{Param: "event.id", Reason: "must not be empty"}
	}
	if e.Capacity <= 0 {
		return &model.ValidationError{Param: "event.capacity", Expected: "positive integer", Reason: fmt.Sprintf("got %d", e.Capacity)}
	}
	if len(e.Participants) > e.Capacity {
		return &model.ConflictError{Resource: "event", ID: e.ID, Reason: "more participants than capacity"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[e.ID]; exists {
		return &model.ConflictError{Resource: "event", ID: e.ID, Reason: "already exists"}
	}
	if e.VenueID != "" {
		if _, ok := s.venues[e.VenueID]; !ok {
			return &model.NotFoundError{Resource: "venue", ID: e.VenueID}
		}
	}

	entry := &eventEntry{
		event:         cloneEvent(e),
		registrations: make(map[string]model.Registration, len(e.Participants)),
	}
	entry.event.Participants = entry.event.Participants[:0]
	for _, sid := range e.Participants {
		if _, dup := entry.registrations[sid]; dup {
			continue
		}
		entry.registrations[sid] = model.Registration{
			ID:           s.newID(),
			EventID:      e.ID,
			StudentID:    sid,
			RegisteredAt: s.now(),
		}
		entry.event.Participants = append(entry.event.Participants, sid)
	}
	s.events[e.ID] = entry
	s.eventOrder = append(s.eventOrder, e.ID)
	return nil
}

func (s *Store) eventEntry(id string) (*eventEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.events[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "event", ID: id}
	}
	return entry, nil
}

func (s *Store) venueEntry(id string) (*venueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.venues[id]
	if !ok {
		return nil, &model.NotFoundError{Resource: "venue", ID: id}
	}
	return entry, nil
}

func (s *Store) eventEntries() []*eventEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*eventEntry, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		out = append(out, s.events[id])
	}
	return out
}

func (s *Store) venueEntries() []*venueEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*venueEntry, 0, len(s.venueOrder))
	for _, id := range s.venueOrder {
		out = append(out, s.venues[id])
	}
	return out
}

// Events returns snapshots of all events in seed order.
func (s *Store) Events() []model.Event {
	entries := s.eventEntries()
	out := make([]model.Event, 0, len(entries))
	for _, entry := range entries {
		entry.mu.RLock()
		out = append(out, cloneEvent(entry.event))
		entry.mu.RUnlock()
	}
	return out
}

// Event returns a snapshot of one event.
func (s *Store) Event(id string) (model.Event, error) {
	entry, err := s.eventEntry(id)
	if err != nil {
		return model.Event{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return cloneEvent(entry.event), nil
}

// Register adds studentID to the event's participants. The lookup of an
// existing registration and the capacity check happen under the event
// lock together with the insert, so concurrent attempts can never
// overbook. A repeat attempt returns the earlier registration with
// created set to false and consumes no capacity.
func (s *Store) Register(eventID, studentID, studentName string) (reg model.Registration, created bool, registered int, err error) {
	entry, err := s.eventEntry(eventID)
	if err != nil {
		return model.Registration{}, false, 0, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if existing, ok := entry.registrations[studentID]; ok {
		return existing, false, len(entry.event.Participants), nil
	}
	if entry.event.IsFull() {
		return model.Registration{}, false, len(entry.event.Participants), &model.ConflictError{
			Resource: "event",
			ID:       eventID,
			Reason:   fmt.Sprintf("event is full (capacity %d)", entry.event.Capacity),
		}
	}

	reg = model.Registration{
		ID:           s.newID(),
		EventID:      eventID,
		StudentID:    studentID,
		StudentName:  studentName,
		RegisteredAt: s.now(),
	}
	entry.registrations[studentID] = reg
	entry.event.Participants = append(entry.event.Participants, studentID)
	return reg, true, len(entry.event.Participants), nil
}

// Participants returns the event title and its registrants in
// registration order.
func (s *Store) Participants(eventID string) (string, []string, error) {
	entry, err := s.eventEntry(eventID)
	if err != nil {
		return "", nil, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.event.Title, slices.Clone(entry.event.Participants), nil
}

// AllStudents returns every student registered for any event, each once,
// in order of first appearance across events.
func (s *Store) AllStudents() []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, entry := range s.eventEntries() {
		entry.mu.RLock()
		for _, sid := range entry.event.Participants {
			if _, ok := seen[sid]; ok {
				continue
			}
			seen[sid] = struct{}{}
			out = append(out, sid)
		}
		entry.mu.RUnlock()
	}
	return out
}

// Venues returns snapshots of all venues in seed order.
func (s *Store) Venues() []model.Venue {
	entries := s.venueEntries()
	out := make([]model.Venue, 0, len(entries))
	for _, entry := range entries {
		entry.mu.RLock()
		out = append(out, cloneVenue(entry.venue))
		entry.mu.RUnlock()
	}
	return out
}

// Venue returns a snapshot of one venue including its bookings.
func (s *Store) Venue(id string) (model.Venue, error) {
	entry, err := s.venueEntry(id)
	if err != nil {
		return model.Venue{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return cloneVenue(entry.venue), nil
}

// Availability reports whether slot is free at the venue, and if not, the
// earliest booked slot it collides with and every booking overlapping it.
func (s *Store) Availability(venueID string, slot model.TimeSlot) (model.Availability, error) {
	entry, err := s.venueEntry(venueID)
	if err != nil {
		return model.Availability{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()

	booked := overlapping(entry.venue.Bookings, slot)
	out := model.Availability{
		VenueID:     venueID,
		Slot:        slot,
		Available:   len(booked) == 0,
		BookedCount: len(booked),
		Bookings:    booked,
	}
	if !out.Available {
		conflict := booked[0].Slot
		out.Conflict = &conflict
	}
	return out, nil
}

// Book reserves req.Slot at the venue. An overlapping slot or more
// expected attendees than the venue holds is a conflict, and the venue's
// bookings are left untouched.
func (s *Store) Book(venueID string, req model.BookingRequest) (model.Booking, error) {
	entry, err := s.venueEntry(venueID)
	if err != nil {
		return model.Booking{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if req.ExpectedAttendees > entry.venue.Capacity {
		return model.Booking{}, &model.ConflictError{
			Resource: "venue",
			ID:       venueID,
			Reason: fmt.Sprintf("venue capacity (%d) is less than expected attendees (%d)",
				entry.venue.Capacity, req.ExpectedAttendees),
		}
	}
	if conflict, ok := firstOverlap(entry.venue.Bookings, req.Slot); ok {
		return model.Booking{}, &model.ConflictError{
			Resource: "venue",
			ID:       venueID,
			Reason: fmt.Sprintf("slot overlaps existing booking %s-%s",
				conflict.Start.Format(time.RFC3339), conflict.End.Format(time.RFC3339)),
			Conflict: &conflict,
		}
	}

	b := model.Booking{
		ID:                s.newID(),
		VenueID:           venueID,
		Slot:              req.Slot,
		ClubName:          req.ClubName,
		Purpose:           req.Purpose,
		ExpectedAttendees: req.ExpectedAttendees,
		BookedAt:          s.now(),
	}
	i := sort.Search(len(entry.venue.Bookings), func(i int) bool {
		return entry.venue.Bookings[i].Slot.Start.After(b.Slot.Start)
	})
	entry.venue.Bookings = slices.Insert(entry.venue.Bookings, i, b)
	return b, nil
}

// AppendNotification stamps n with an id and send time and appends it to
// the log.
func (s *Store) AppendNotification(n model.Notification) model.Notification {
	n.ID = s.newID()
	n.SentAt = s.now()
	n.Recipients = slices.Clone(n.Recipients)
	if n.Recipients == nil {
		n.Recipients = []string{}
	}

	s.logMu.Lock()
	s.notifications = append(s.notifications, n)
	s.logMu.Unlock()

	n.Recipients = slices.Clone(n.Recipients)
	return n
}

// Notifications returns the log in send order.
func (s *Store) Notifications() []model.Notification {
	s.logMu.RLock()
	defer s.logMu.RUnlock()
	out := make([]model.Notification, len(s.notifications))
	for i, n := range s.notifications {
		n.Recipients = slices.Clone(n.Recipients)
		out[i] = n
	}
	return out
}

// firstOverlap scans start-ordered bookings for the first one colliding
// with slot.
func firstOverlap(bookings []model.Booking, slot model.TimeSlot) (model.TimeSlot, bool) {
	for _, b := range bookings {
		if !b.Slot.Start.Before(slot.End) {
			break
		}
		if b.Slot.Overlaps(slot) {
			return b.Slot, true
		}
	}
	return model.TimeSlot{}, false
}

// overlapping copies the start-ordered bookings colliding with slot.
func overlapping(bookings []model.Booking, slot model.TimeSlot) []model.Booking {
	out := []model.Booking{}
	for _, b := range bookings {
		if !b.Slot.Start.Before(slot.End) {
			break
		}
		if b.Slot.Overlaps(slot) {
			out = append(out, b)
		}
	}
	return out
}

func sortBookings(bs []model.Booking) {
	sort.SliceStable(bs, func(i, j int) bool { return bs[i].Slot.Start.Before(bs[j].Slot.Start) })
}

func cloneEvent(e model.Event) model.Event {
	e.Participants = slices.Clone(e.Participants)
	if e.Participants == nil {
		e.Participants = []string{}
	}
	return e
}

func cloneVenue(v model.Venue) model.Venue {
	v.Facilities = slices.Clone(v.Facilities)
	v.Bookings = slices.Clone(v.Bookings)
	if v.Facilities == nil {
		v.Facilities = []string{}
	}
	if v.Bookings == nil {
		v.Bookings = []model.Booking{}
	}
	return v
}
