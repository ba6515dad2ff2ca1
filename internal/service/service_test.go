package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*EventService, *store.Store) {
	t.Helper()
	st := store.New(store.WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, st.AddVenue(model.Venue{ID: "lab_cs1", Name: "Computer Lab 1", Capacity: 60}))
	require.NoError(t, st.AddEvent(model.Event{
		ID:       "hackathon",
		Title:    "Hackathon",
		StartsAt: time.Date(2024, 4, 20, 9, 0, 0, 0, time.UTC),
		Capacity: 2,
		VenueID:  "lab_cs1",
	}))
	require.NoError(t, st.AddEvent(model.Event{ID: "talk", Title: "Talk", Capacity: 10, VenueID: "lab_cs1"}))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEventService(st, WithLogger(log)), st
}

func register(t *testing.T, svc *EventService, event, student string) *model.RegistrationResult {
	t.Helper()
	res, err := svc.RegisterStudent(context.Background(), event, model.RegisterRequest{StudentID: student})
	require.NoError(t, err)
	return res
}

func TestEventService_BrowseEvents(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "hackathon", "A")

	got := svc.BrowseEvents(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "hackathon", got[0].ID)
	assert.Equal(t, 1, got[0].Registered)
	assert.Equal(t, 2, got[0].Capacity)
	assert.Equal(t, 1, got[0].Remaining)
	assert.Equal(t, "talk", got[1].ID)
	assert.Equal(t, 10, got[1].Remaining)
}

func TestEventService_GetEventDetails(t *testing.T) {
	svc, _ := newTestService(t)

	ev, err := svc.GetEventDetails(context.Background(), " hackathon ")
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", ev.Title)

	_, err = svc.GetEventDetails(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.GetEventDetails(context.Background(), "  ")
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "event_id", ve.Param)
}

func TestEventService_RegisterStudent_Scenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := register(t, svc, "hackathon", "A")
	assert.False(t, a.AlreadyRegistered)
	assert.Equal(t, 1, a.Registered)
	assert.Equal(t, 2, a.Capacity)
	assert.Equal(t, 1, a.Remaining)

	b := register(t, svc, "hackathon", "B")
	assert.Equal(t, 2, b.Registered)
	assert.Equal(t, 0, b.Remaining)

	_, err := svc.RegisterStudent(ctx, "hackathon", model.RegisterRequest{StudentID: "C"})
	var cf *model.ConflictError
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, "hackathon", cf.ID)

	p, err := svc.ListParticipants(ctx, "hackathon")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, p.StudentIDs)
	assert.Equal(t, 2, p.Count)
}

func TestEventService_RegisterStudent_Retry(t *testing.T) {
	svc, _ := newTestService(t)

	first := register(t, svc, "hackathon", "A")
	again := register(t, svc, "hackathon", "A")

	assert.True(t, again.AlreadyRegistered)
	assert.Equal(t, first.Registration, again.Registration)
	assert.Equal(t, 1, again.Registered)
}

func TestEventService_RegisterStudent_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RegisterStudent(context.Background(), "hackathon", model.RegisterRequest{StudentID: ""})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "student_id", ve.Param)

	_, err = svc.RegisterStudent(context.Background(), "nope", model.RegisterRequest{StudentID: "A"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEventService_BookVenue_Scenario(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	book := func(start, end string) (*model.Booking, error) {
		return svc.BookVenue(ctx, "lab_cs1", model.BookVenueRequest{
			Slot:     model.SlotInput{Date: "2024-05-01", Start: start, End: end},
			ClubName: "Chess Club",
		})
	}

	b, err := book("10:00", "12:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), b.Slot.Start)

	_, err = book("11:00", "13:00")
	var cf *model.ConflictError
	require.ErrorAs(t, err, &cf)
	require.NotNil(t, cf.Conflict)
	assert.Equal(t, b.Slot, *cf.Conflict)

	v, err := st.Venue("lab_cs1")
	require.NoError(t, err)
	assert.Len(t, v.Bookings, 1)

	_, err = book("12:00", "13:00")
	require.NoError(t, err)
}

func TestEventService_BookVenue_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   model.BookVenueRequest
		param string
	}{
		{"bad date", model.BookVenueRequest{Slot: model.SlotInput{Date: "May 1", Start: "10:00", End: "11:00"}, ClubName: "x"}, "slot.date"},
		{"bad start", model.BookVenueRequest{Slot: model.SlotInput{Date: "2024-05-01", Start: "10am", End: "11:00"}, ClubName: "x"}, "slot.start"},
		{"end before start", model.BookVenueRequest{Slot: model.SlotInput{Date: "2024-05-01", Start: "11:00", End: "10:00"}, ClubName: "x"}, "slot.end"},
		{"no club", model.BookVenueRequest{Slot: model.SlotInput{Date: "2024-05-01", Start: "10:00", End: "11:00"}}, "club_name"},
		{"negative attendees", model.BookVenueRequest{Slot: model.SlotInput{Date: "2024-05-01", Start: "10:00", End: "11:00"}, ClubName: "x", ExpectedAttendees: -1}, "expected_attendees"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BookVenue(ctx, "lab_cs1", tt.req)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.param, ve.Param)
		})
	}
}

func TestEventService_CheckVenueAvailability(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	slot := model.SlotInput{Date: "2024-05-01", Start: "10:00", End: "12:00"}

	a, err := svc.CheckVenueAvailability(ctx, "lab_cs1", slot)
	require.NoError(t, err)
	assert.True(t, a.Available)

	_, err = svc.BookVenue(ctx, "lab_cs1", model.BookVenueRequest{Slot: slot, ClubName: "x"})
	require.NoError(t, err)

	a, err = svc.CheckVenueAvailability(ctx, "lab_cs1", model.SlotInput{Date: "2024-05-01", Start: "11:30", End: "12:30"})
	require.NoError(t, err)
	assert.False(t, a.Available)
	require.NotNil(t, a.Conflict)

	assert.Equal(t, 1, a.BookedCount)
	require.Len(t, a.Bookings, 1)
	assert.Equal(t, "x", a.Bookings[0].ClubName)

	_, err = svc.CheckVenueAvailability(ctx, "gym", slot)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEventService_CheckVenueAvailability_WholeDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := model.SlotInput{Date: "2024-05-01"}

	a, err := svc.CheckVenueAvailability(ctx, "lab_cs1", day)
	require.NoError(t, err)
	assert.True(t, a.Available)
	assert.Equal(t, 0, a.BookedCount)
	assert.Empty(t, a.Bookings)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), a.Slot.Start)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), a.Slot.End)

	for _, s := range []model.SlotInput{
		{Date: "2024-05-01", Start: "14:00", End: "15:00"},
		{Date: "2024-05-01", Start: "09:00", End: "10:00"},
		{Date: "2024-05-02", Start: "09:00", End: "10:00"},
	} {
		_, err := svc.BookVenue(ctx, "lab_cs1", model.BookVenueRequest{Slot: s, ClubName: "Club " + s.Start})
		require.NoError(t, err)
	}

	a, err = svc.CheckVenueAvailability(ctx, "lab_cs1", day)
	require.NoError(t, err)
	assert.False(t, a.Available)
	assert.Equal(t, 2, a.BookedCount)
	require.Len(t, a.Bookings, 2)
	assert.Equal(t, "Club 09:00", a.Bookings[0].ClubName, "bookings come in start order")
	assert.Equal(t, "Club 14:00", a.Bookings[1].ClubName)
	require.NotNil(t, a.Conflict)
	assert.Equal(t, a.Bookings[0].Slot, *a.Conflict)
}

func TestEventService_CheckVenueAvailability_HalfSlot(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CheckVenueAvailability(context.Background(), "lab_cs1", model.SlotInput{Date: "2024-05-01", Start: "10:00"})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "slot.end", ve.Param)

	_, err = svc.CheckVenueAvailability(context.Background(), "lab_cs1", model.SlotInput{Date: "someday"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "slot.date", ve.Param)
}

func TestEventService_WithLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	svc := NewEventService(store.New(), WithLocation(loc))

	slot, err := svc.ParseSlot(model.SlotInput{Date: "2024-05-01", Start: "10:00", End: "12:00"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 4, 30, 0, 0, time.UTC), slot.Start.UTC())

	day, err := svc.ParseDay("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 30, 18, 30, 0, 0, time.UTC), day.Start.UTC())
	assert.Equal(t, 24*time.Hour, day.End.Sub(day.Start))
}

func TestEventService_Venues(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.Len(t, svc.ListVenues(ctx), 1)

	v, err := svc.GetVenueDetails(ctx, "lab_cs1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Lab 1", v.Name)

	_, err = svc.GetVenueDetails(ctx, "gym")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEventService_SendNotification(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	register(t, svc, "hackathon", "A")
	register(t, svc, "hackathon", "B")
	register(t, svc, "talk", "C")

	n, err := svc.SendNotification(ctx, model.NotificationRequest{EventID: "hackathon", Message: "Room changed"})
	require.NoError(t, err)
	assert.Equal(t, model.RecipientsAllParticipants, n.RecipientType)
	assert.Equal(t, []string{"A", "B"}, n.Recipients)
	assert.NotEmpty(t, n.ID)

	// later registrations do not change the snapshot
	register(t, svc, "talk", "D")
	log := svc.NotificationLog(ctx)
	require.Len(t, log, 1)
	assert.Equal(t, []string{"A", "B"}, log[0].Recipients)

	n, err = svc.SendNotification(ctx, model.NotificationRequest{
		EventID: "talk", Message: "hi", RecipientType: model.RecipientsAllStudents,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, n.Recipients)

	n, err = svc.SendNotification(ctx, model.NotificationRequest{
		EventID: "talk", Message: "hi", RecipientType: model.RecipientsSpecificStudents,
		RecipientIDs: []string{"X", " X ", "", "Y"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, n.Recipients)
}

func TestEventService_SendNotification_NoRegistrants(t *testing.T) {
	svc, _ := newTestService(t)

	n, err := svc.SendNotification(context.Background(), model.NotificationRequest{EventID: "talk", Message: "anyone?"})
	require.NoError(t, err)
	assert.Empty(t, n.Recipients)
	assert.NotNil(t, n.Recipients)
}

func TestEventService_SendNotification_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SendNotification(ctx, model.NotificationRequest{EventID: "nope", Message: "x"})
	assert.ErrorIs(t, err, model.ErrNotFound)

	tests := []struct {
		name  string
		req   model.NotificationRequest
		param string
	}{
		{"empty message", model.NotificationRequest{EventID: "talk", Message: " "}, "message"},
		{"specific without ids", model.NotificationRequest{EventID: "talk", Message: "x", RecipientType: model.RecipientsSpecificStudents}, "recipient_ids"},
		{"unknown type", model.NotificationRequest{EventID: "talk", Message: "x", RecipientType: "everyone"}, "recipient_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendNotification(ctx, tt.req)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.param, ve.Param)
		})
	}
	assert.Empty(t, svc.NotificationLog(ctx))
}
