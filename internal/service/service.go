// Package service implements the campus domain operations: validation of
// typed arguments and orchestration over the entity store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/store"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// EventService orchestrates event, venue and notification operations.
type EventService struct {
	store *store.Store
	loc   *time.Location
	log   *slog.Logger
}

// Option configures an EventService.
type Option func(*EventService)

// WithLogger sets the logger. Nil falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *EventService) { s.log = l }
}

// WithLocation sets the time zone slot dates and times are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *EventService) { s.loc = loc }
}

// NewEventService constructs an EventService over st.
func NewEventService(st *store.Store, opts ...Option) *EventService {
	s := &EventService{store: st, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *EventService) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}

// BrowseEvents returns a summary of every event in catalogue order.
func (s *EventService) BrowseEvents(ctx context.Context) []model.EventSummary {
	events := s.store.Events()
	out := make([]model.EventSummary, 0, len(events))
	for i := range events {
		out = append(out, events[i].Summary())
	}
	s.logger().DebugContext(ctx, "browse events", "count", len(out))
	return out
}

// GetEventDetails returns the full record of one event.
func (s *EventService) GetEventDetails(ctx context.Context, eventID string) (*model.Event, error) {
	eventID, err := requireID("event_id", eventID)
	if err != nil {
		return nil, err
	}
	ev, err := s.store.Event(eventID)
	if err != nil {
		return nil, passThrough("get event", err)
	}
	return &ev, nil
}

// RegisterStudent registers a student for an event. Registering the same
// student twice returns the original registration with AlreadyRegistered
// set, so callers may safely retry.
func (s *EventService) RegisterStudent(ctx context.Context, eventID string, req model.RegisterRequest) (*model.RegistrationResult, error) {
	eventID, err := requireID("event_id", eventID)
	if err != nil {
		return nil, err
	}
	studentID, err := requireID("student_id", req.StudentID)
	if err != nil {
		return nil, err
	}

	reg, created, registered, err := s.store.Register(eventID, studentID, strings.TrimSpace(req.StudentName))
	if err != nil {
		return nil, passThrough("register student", err)
	}
	ev, err := s.store.Event(eventID)
	if err != nil {
		return nil, passThrough("register student", err)
	}

	if created {
		s.logger().InfoContext(ctx, "student registered",
			"event_id", eventID, "student_id", studentID, "registered", registered, "capacity", ev.Capacity)
	}
	return &model.RegistrationResult{
		Registration:      reg,
		AlreadyRegistered: !created,
		Registered:        registered,
		Capacity:          ev.Capacity,
		Remaining:         ev.Remaining(),
	}, nil
}

// ListParticipants returns the registrants of an event in registration
// order.
func (s *EventService) ListParticipants(ctx context.Context, eventID string) (*model.Participants, error) {
	eventID, err := requireID("event_id", eventID)
	if err != nil {
		return nil, err
	}
	title, ids, err := s.store.Participants(eventID)
	if err != nil {
		return nil, passThrough("list participants", err)
	}
	return &model.Participants{
		EventID:    eventID,
		EventTitle: title,
		Count:      len(ids),
		StudentIDs: ids,
	}, nil
}

// ListVenues returns every venue with its bookings.
func (s *EventService) ListVenues(ctx context.Context) []model.Venue {
	return s.store.Venues()
}

// GetVenueDetails returns one venue with its bookings.
func (s *EventService) GetVenueDetails(ctx context.Context, venueID string) (*model.Venue, error) {
	venueID, err := requireID("venue_id", venueID)
	if err != nil {
		return nil, err
	}
	v, err := s.store.Venue(venueID)
	if err != nil {
		return nil, passThrough("get venue", err)
	}
	return &v, nil
}

// CheckVenueAvailability reports whether the venue is free for the slot.
// A slot with only a date checks the whole day and lists its bookings.
func (s *EventService) CheckVenueAvailability(ctx context.Context, venueID string, in model.SlotInput) (*model.Availability, error) {
	venueID, err := requireID("venue_id", venueID)
	if err != nil {
		return nil, err
	}
	var slot model.TimeSlot
	if strings.TrimSpace(in.Start) == "" && strings.TrimSpace(in.End) == "" {
		slot, err = s.ParseDay(in.Date)
	} else {
		slot, err = s.ParseSlot(in)
	}
	if err != nil {
		return nil, err
	}
	a, err := s.store.Availability(venueID, slot)
	if err != nil {
		return nil, passThrough("check availability", err)
	}
	return &a, nil
}

// BookVenue reserves a venue for a slot.
func (s *EventService) BookVenue(ctx context.Context, venueID string, req model.BookVenueRequest) (*model.Booking, error) {
	venueID, err := requireID("venue_id", venueID)
	if err != nil {
		return nil, err
	}
	slot, err := s.ParseSlot(req.Slot)
	if err != nil {
		return nil, err
	}
	club, err := requireID("club_name", req.ClubName)
	if err != nil {
		return nil, err
	}
	if req.ExpectedAttendees < 0 {
		return nil, &model.ValidationError{
			Param:    "expected_attendees",
			Expected: "non-negative integer",
			Reason:   fmt.Sprintf("got %d", req.ExpectedAttendees),
		}
	}

	b, err := s.store.Book(venueID, model.BookingRequest{
		Slot:              slot,
		ClubName:          club,
		Purpose:           strings.TrimSpace(req.Purpose),
		ExpectedAttendees: req.ExpectedAttendees,
	})
	if err != nil {
		return nil, passThrough("book venue", err)
	}
	s.logger().InfoContext(ctx, "venue booked",
		"venue_id", venueID, "club", club, "start", slot.Start, "end", slot.End)
	return &b, nil
}

// SendNotification records a notification for an event. The recipient
// list is a snapshot taken now; an event without registrants produces a
// notification with no recipients.
func (s *EventService) SendNotification(ctx context.Context, req model.NotificationRequest) (*model.Notification, error) {
	eventID, err := requireID("event_id", req.EventID)
	if err != nil {
		return nil, err
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, &model.ValidationError{Param: "message", Reason: "must not be empty"}
	}
	kind := req.RecipientType
	if kind == "" {
		kind = model.RecipientsAllParticipants
	}

	_, participants, err := s.store.Participants(eventID)
	if err != nil {
		return nil, passThrough("send notification", err)
	}

	var recipients []string
	switch kind {
	case model.RecipientsAllParticipants:
		recipients = participants
	case model.RecipientsSpecificStudents:
		recipients = compactIDs(req.RecipientIDs)
		if len(recipients) == 0 {
			return nil, &model.ValidationError{
				Param:    "recipient_ids",
				Expected: "non-empty list of student ids",
				Reason:   "required when recipient_type is specific_students",
			}
		}
	case model.RecipientsAllStudents:
		recipients = s.store.AllStudents()
	default:
		return nil, &model.ValidationError{
			Param:    "recipient_type",
			Expected: fmt.Sprintf("one of %v", model.RecipientTypes),
			Reason:   fmt.Sprintf("got %q", kind),
		}
	}

	n := s.store.AppendNotification(model.Notification{
		EventID:       eventID,
		Message:       msg,
		RecipientType: kind,
		Recipients:    recipients,
	})
	s.logger().InfoContext(ctx, "notification sent",
		"event_id", eventID, "recipient_type", kind, "recipients", len(n.Recipients))
	return &n, nil
}

// NotificationLog returns every notification sent so far, oldest first.
func (s *EventService) NotificationLog(ctx context.Context) []model.Notification {
	return s.store.Notifications()
}

// ParseDay returns the slot covering the whole calendar date in the
// service's zone, from midnight to the next midnight.
func (s *EventService) ParseDay(date string) (model.TimeSlot, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return model.TimeSlot{}, err
	}
	return model.TimeSlot{Start: day, End: day.AddDate(0, 0, 1)}, nil
}

// ParseSlot converts a wire slot into a TimeSlot in the service's zone.
func (s *EventService) ParseSlot(in model.SlotInput) (model.TimeSlot, error) {
	date, err := s.parseDate(in.Date)
	if err != nil {
		return model.TimeSlot{}, err
	}
	start, err := clockOn(date, in.Start)
	if err != nil {
		return model.TimeSlot{}, &model.ValidationError{Param: "slot.start", Expected: "time as HH:MM", Reason: fmt.Sprintf("got %q", in.Start)}
	}
	end, err := clockOn(date, in.End)
	if err != nil {
		return model.TimeSlot{}, &model.ValidationError{Param: "slot.end", Expected: "time as HH:MM", Reason: fmt.Sprintf("got %q", in.End)}
	}
	slot := model.TimeSlot{Start: start, End: end}
	if !slot.Valid() {
		return model.TimeSlot{}, &model.ValidationError{Param: "slot.end", Expected: "a time after slot.start", Reason: fmt.Sprintf("%s is not after %s", in.End, in.Start)}
	}
	return slot, nil
}

func (s *EventService) parseDate(v string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(v), s.loc)
	if err != nil {
		return time.Time{}, &model.ValidationError{Param: "slot.date", Expected: "date as YYYY-MM-DD", Reason: fmt.Sprintf("got %q", v)}
	}
	return date, nil
}

func clockOn(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func requireID(param, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", &model.ValidationError{Param: param, Expected: "string", Reason: "is required"}
	}
	return v, nil
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// passThrough surfaces domain errors directly so callers can map them to
// the right status, and wraps anything else.
func passThrough(op string, err error) error {
	if errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrConflict) ||
		errors.Is(err, model.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
