package service

import (
	"context"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/dispatch"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/toolschema"
)

var (
	eventIDParam = toolschema.Param{
		Name:        "event_id",
		Kind:        toolschema.String,
		Description: "Event identifier, e.g. hackathon_spring. Use browse_events to discover ids.",
	}
	venueIDParam = toolschema.Param{
		Name:        "venue_id",
		Kind:        toolschema.String,
		Description: "Venue identifier, e.g. lab_cs1. Use list_venues to discover ids.",
	}
	slotParam = toolschema.Param{
		Name:        "slot",
		Kind:        toolschema.Object,
		Description: "Time slot on a single day.",
		TypeName:    "TimeSlot",
		Fields: []toolschema.Param{
			{Name: "date", Kind: toolschema.String, Format: "date", Description: "Day as YYYY-MM-DD."},
			{Name: "start", Kind: toolschema.String, Description: "Start time as HH:MM, 24-hour clock."},
			{Name: "end", Kind: toolschema.String, Description: "End time as HH:MM, 24-hour clock. Must be after start."},
		},
	}
	slotQueryParam = toolschema.Param{
		Name:        "slot",
		Kind:        toolschema.Object,
		Description: "Time slot on a single day. Omit start and end to check the whole day.",
		TypeName:    "SlotQuery",
		Fields: []toolschema.Param{
			{Name: "date", Kind: toolschema.String, Format: "date", Description: "Day as YYYY-MM-DD."},
			{Name: "start", Kind: toolschema.String, Default: "", Description: "Start time as HH:MM, 24-hour clock."},
			{Name: "end", Kind: toolschema.String, Default: "", Description: "End time as HH:MM, 24-hour clock. Must be after start."},
		},
	}
)

func recipientTypeValues() []string {
	out := make([]string, 0, len(model.RecipientTypes))
	for _, rt := range model.RecipientTypes {
		out = append(out, string(rt))
	}
	return out
}

// Tools binds every domain operation to its declared tool signature, in
// the order the catalog lists them.
func (s *EventService) Tools() []dispatch.Tool {
	return []dispatch.Tool{
		{
			Signature: toolschema.Signature{
				Name:        "browse_events",
				Description: "List all campus events with their date, venue and how many seats are taken.",
			},
			Handler: func(ctx context.Context, _ dispatch.Args) (any, error) {
				return s.BrowseEvents(ctx), nil
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "get_event_details",
				Description: "Get the full record of one event, including its registered participants.",
				Params:      []toolschema.Param{eventIDParam},
			},
			Handler: func(ctx context.Context, a dispatch.Args) (any, error) {
				return s.GetEventDetails(ctx, a.String("event_id"))
			},
		},
		{
			Signature: toolschema.Signature{
				Name: "register_student",
				Description: "Register a student for an event. Safe to retry: registering the same " +
					"student again returns the existing registration.",
				Params: []toolschema.Param{
					eventIDParam,
					{Name: "student_id", Kind: toolschema.String, Description: "Student identifier."},
					{Name: "student_name", Kind: toolschema.String, Description: "Student display name.", Default: ""},
				},
			},
			Handler: func(ctx context.Context, a dispatch.Args) (any, error) {
				return s.RegisterStudent(ctx, a.String("event_id"), model.RegisterRequest{
					StudentID:   a.String("student_id"),
					StudentName: a.String("student_name"),
				})
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "list_participants",
				Description: "List the students registered for an event, in registration order.",
				Params:      []toolschema.Param{eventIDParam},
			},
			Handler: func(ctx context.Context, a dispatch.Args) (any, error) {
				return s.ListParticipants(ctx, a.String("event_id"))
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "list_venues",
				Description: "List all bookable venues with capacity, facilities and existing bookings.",
			},
			Handler: func(ctx context.Context, _ dispatch.Args) (any, error) {
				return s.ListVenues(ctx), nil
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "get_venue_details",
				Description: "Get one venue with its bookings.",
				Params:      []toolschema.Param{venueIDParam},
			},
			Handler: func(ctx context.Context, a dispatch.Args) (any, error) {
				return s.GetVenueDetails(ctx, a.String("venue_id"))
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "check_venue_availability",
				Description: "Check whether a venue is free for a time slot, or list its bookings for a whole day. Returns the overlapping bookings and their count.",
				Params:      []toolschema.Param{venueIDParam, slotQueryParam},
			},
			Handler: func(ctx context.Context, a dispatch.Args) (any, error) {
				return s.CheckVenueAvailability(ctx, a.String("venue_id"), slotInput(a.Object("slot")))
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "book_venue",
				Description: "Book a venue for a time slot. Fails if the slot overlaps an existing booking or the venue is too small.",
				Params: []toolschema.Param{
					venueIDParam,
					slotParam,
					{Name: "club_name", Kind: toolschema.String, Description: "Club or group making the booking."},
					{Name: "purpose", Kind: toolschema.String, Description: "What the venue is booked for.", Default: ""},
					{Name: "expected_attendees", Kind: toolschema.Integer, Description: "Expected head count.", Default: 0},
				},
			},
			Handler: func(ctx context.Context, a dispatch.Args) (any, error) {
				return s.BookVenue(ctx, a.String("venue_id"), model.BookVenueRequest{
					Slot:              slotInput(a.Object("slot")),
					ClubName:          a.String("club_name"),
					Purpose:           a.String("purpose"),
					ExpectedAttendees: a.Int("expected_attendees"),
				})
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "send_notification",
				Description: "Send a message about an event. Recipients are fixed at the moment of sending.",
				Params: []toolschema.Param{
					eventIDParam,
					{Name: "message", Kind: toolschema.String, Description: "Message body."},
					{
						Name:        "recipient_type",
						Kind:        toolschema.Enum,
						Description: "Who receives the message.",
						Enum:        recipientTypeValues(),
						Default:     string(model.RecipientsAllParticipants),
					},
					{
						Name:        "recipient_ids",
						Kind:        toolschema.Array,
						Description: "Student ids; required when recipient_type is specific_students.",
						Items:       &toolschema.Param{Kind: toolschema.String},
						Default:     []string{},
					},
				},
			},
			Handler: func(ctx context.Context, a dispatch.Args) (any, error) {
				return s.SendNotification(ctx, model.NotificationRequest{
					EventID:       a.String("event_id"),
					Message:       a.String("message"),
					RecipientType: model.RecipientType(a.String("recipient_type")),
					RecipientIDs:  a.Strings("recipient_ids"),
				})
			},
		},
		{
			Signature: toolschema.Signature{
				Name:        "get_notification_log",
				Description: "List every notification sent so far, oldest first.",
			},
			Handler: func(ctx context.Context, _ dispatch.Args) (any, error) {
				return s.NotificationLog(ctx), nil
			},
		},
	}
}

func slotInput(a dispatch.Args) model.SlotInput {
	return model.SlotInput{
		Date:  a.String("date"),
		Start: a.String("start"),
		End:   a.String("end"),
	}
}
