// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer and the tool
// dispatcher.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/dispatch"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// EventHandler holds all HTTP handlers for the campus API.
type EventHandler struct {
	svc   *service.EventService
	tools *dispatch.Dispatcher
	log   *slog.Logger
}

// NewEventHandler constructs an EventHandler. A nil logger falls back to
// slog.Default().
func NewEventHandler(svc *service.EventService, tools *dispatch.Dispatcher, log *slog.Logger) *EventHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventHandler{svc: svc, tools: tools, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind string) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status its kind maps to. Internal
// errors are logged and reported without their cause.
func (h *EventHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := model.ErrorKind(err)
	status := statusFor(kind)
	msg := err.Error()
	if kind == model.KindInternal {
		h.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, model.ErrorResponse{
		Error:   msg,
		Kind:    kind,
		Details: model.ErrorDetails(err),
	})
}

// decodeJSON reads one JSON value from the body. Malformed bodies and
// unknown fields come back as validation errors.
func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &model.ValidationError{Expected: "JSON object", Reason: "request body is empty"}
		}
		return &model.ValidationError{
			Param:    fieldOf(err),
			Expected: "JSON object",
			Reason:   "invalid request body: " + err.Error(),
		}
	}
	return nil
}

// fieldOf extracts the offending field name from a decoder error.
func fieldOf(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return te.Field
	}
	const unknown = "json: unknown field "
	if msg := err.Error(); strings.HasPrefix(msg, unknown) {
		return strings.Trim(strings.TrimPrefix(msg, unknown), `"`)
	}
	return ""
}

// ─── Events ───────────────────────────────────────────────────────────────────

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.BrowseEvents(r.Context()))
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEventDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Register handles POST /events/{id}/register
// Answers 201 for a new registration and 200 when the student was already
// registered.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.RegisterStudent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyRegistered {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// ListParticipants handles GET /events/{id}/participants
func (h *EventHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ListParticipants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ─── Venues ───────────────────────────────────────────────────────────────────

// ListVenues handles GET /venues
func (h *EventHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ListVenues(r.Context()))
}

// GetVenue handles GET /venues/{id}
func (h *EventHandler) GetVenue(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVenueDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Availability handles GET /venues/{id}/availability?date=&start=&end=
// With only date it reports the whole day.
func (h *EventHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a, err := h.svc.CheckVenueAvailability(r.Context(), chi.URLParam(r, "id"), model.SlotInput{
		Date:  q.Get("date"),
		Start: q.Get("start"),
		End:   q.Get("end"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// BookVenue handles POST /venues/{id}/book
func (h *EventHandler) BookVenue(w http.ResponseWriter, r *http.Request) {
	var req model.BookVenueRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.svc.BookVenue(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ─── Notifications ────────────────────────────────────────────────────────────

// SendNotification handles POST /notifications/send
func (h *EventHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req model.NotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	n, err := h.svc.SendNotification(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// NotificationLog handles GET /notifications/log
func (h *EventHandler) NotificationLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.NotificationLog(r.Context()))
}

// ─── Tools ────────────────────────────────────────────────────────────────────

// ListTools handles GET /tools
func (h *EventHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	writeRaw(w, http.StatusOK, h.tools.CatalogJSON())
}

// CallTool handles POST /tools/call
// The response body is always a dispatch.Response; the status follows the
// error kind of a failed call.
func (h *EventHandler) CallTool(w http.ResponseWriter, r *http.Request) {
	var call dispatch.Call
	if err := decodeJSON(r, &call); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.tools.Dispatch(r.Context(), call)
	if err != nil {
		writeJSON(w, statusFor(model.ErrorKind(err)), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Index and health ─────────────────────────────────────────────────────────

// Index handles GET /
func Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "campus-event-backend",
		"status":  "running",
		"endpoints": []string{
			"GET /health",
			"GET /events",
			"GET /events/{id}",
			"POST /events/{id}/register",
			"GET /events/{id}/participants",
			"GET /venues",
			"GET /venues/{id}",
			"GET /venues/{id}/availability?date=&start=&end=",
			"POST /venues/{id}/book",
			"POST /notifications/send",
			"GET /notifications/log",
			"GET /tools",
			"POST /tools/call",
		},
	})
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound answers unknown routes in the common error shape.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, model.ErrorResponse{
		Error: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		Kind:  model.KindNotFound,
	})
}
