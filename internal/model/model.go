// Package model defines the core domain types for the campus event backend.
package model

import "time"

// Event is a campus event students can register for.
type Event struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Capacity     int       `json:"capacity"`
	VenueID      string    `json:"venue_id"`
	Participants []string  `json:"participants"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - len(e.Participants)
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return len(e.Participants) >= e.Capacity
}

// EventSummary is the short form returned when browsing events.
type EventSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"starts_at"`
	VenueID    string    `json:"venue_id"`
	Registered int       `json:"registered"`
	Capacity   int       `json:"capacity"`
	Remaining  int       `json:"remaining"`
}

// Summary returns the browse view of e.
func (e *Event) Summary() EventSummary {
	return EventSummary{
		ID:         e.ID,
		Title:      e.Title,
		StartsAt:   e.StartsAt,
		VenueID:    e.VenueID,
		Registered: len(e.Participants),
		Capacity:   e.Capacity,
		Remaining:  e.Remaining(),
	}
}

// TimeSlot is a half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether s and o share any instant. Adjacent slots,
// where one ends exactly when the other starts, do not overlap.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return s.Start.Before(o.End) && o.Start.Before(s.End)
}

// Valid reports whether the slot has a positive duration.
func (s TimeSlot) Valid() bool {
	return s.End.After(s.Start)
}

// Venue is a bookable campus location.
type Venue struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Capacity   int       `json:"capacity"`
	Facilities []string  `json:"facilities"`
	Bookings   []Booking `json:"bookings"`
}

// Booking reserves a venue for one time slot.
type Booking struct {
	ID                string    `json:"id"`
	VenueID           string    `json:"venue_id"`
	Slot              TimeSlot  `json:"slot"`
	ClubName          string    `json:"club_name"`
	Purpose           string    `json:"purpose"`
	ExpectedAttendees int       `json:"expected_attendees"`
	BookedAt          time.Time `json:"booked_at"`
}

// BookingRequest is the input for reserving a venue.
type BookingRequest struct {
	Slot              TimeSlot `json:"slot"`
	ClubName          string   `json:"club_name"`
	Purpose           string   `json:"purpose"`
	ExpectedAttendees int      `json:"expected_attendees"`
}

// Availability is the answer to a venue availability check. Bookings
// holds every booking overlapping Slot, in start order. For a whole-day
// query Slot spans the day and Available means nothing is booked on it.
type Availability struct {
	VenueID     string    `json:"venue_id"`
	Slot        TimeSlot  `json:"slot"`
	Available   bool      `json:"available"`
	Conflict    *TimeSlot `json:"conflict,omitempty"`
	BookedCount int       `json:"booked_count"`
	Bookings    []Booking `json:"bookings"`
}

// Registration represents a student's registration for an event.
type Registration struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
}

// RegistrationResult wraps a registration with the event's occupancy
// after the attempt.
type RegistrationResult struct {
	Registration      Registration `json:"registration"`
	AlreadyRegistered bool         `json:"already_registered"`
	Registered        int          `json:"registered"`
	Capacity          int          `json:"capacity"`
	Remaining         int          `json:"remaining"`
}

// Participants is the ordered registrant list of one event.
type Participants struct {
	EventID    string   `json:"event_id"`
	EventTitle string   `json:"event_title"`
	Count      int      `json:"count"`
	StudentIDs []string `json:"student_ids"`
}

// RecipientType selects who receives a notification.
type RecipientType string

const (
	RecipientsAllParticipants  RecipientType = "all_participants"
	RecipientsSpecificStudents RecipientType = "specific_students"
	RecipientsAllStudents      RecipientType = "all_students"
)

// RecipientTypes lists every accepted RecipientType in display order.
var RecipientTypes = []RecipientType{
	RecipientsAllParticipants,
	RecipientsSpecificStudents,
	RecipientsAllStudents,
}

// Notification is an append-only record of a message sent to students.
// Recipients is a snapshot taken at send time.
type Notification struct {
	ID            string        `json:"id"`
	EventID       string        `json:"event_id"`
	Message       string        `json:"message"`
	RecipientType RecipientType `json:"recipient_type"`
	Recipients    []string      `json:"recipients"`
	SentAt        time.Time     `json:"sent_at"`
}

// NotificationRequest is the payload for sending a notification.
type NotificationRequest struct {
	EventID       string        `json:"event_id"`
	Message       string        `json:"message"`
	RecipientType RecipientType `json:"recipient_type,omitempty"`
	RecipientIDs  []string      `json:"recipient_ids,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
}

// SlotInput is the wire form of a time slot: a calendar date plus
// "HH:MM" start and end times.
type SlotInput struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// BookVenueRequest is the payload for booking a venue.
type BookVenueRequest struct {
	Slot              SlotInput `json:"slot"`
	ClubName          string    `json:"club_name"`
	Purpose           string    `json:"purpose"`
	ExpectedAttendees int       `json:"expected_attendees"`
}
