// Package server exposes the navigation and reminder flows over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"git.0xdad.com/tblyler/medilens/db"
	"git.0xdad.com/tblyler/medilens/logging"
	"git.0xdad.com/tblyler/medilens/medicine"
	"git.0xdad.com/tblyler/medilens/metrics"
	"git.0xdad.com/tblyler/medilens/navigation"
	"git.0xdad.com/tblyler/medilens/reminder"
)

// MaxImageBytes accepted by the scan endpoint
const MaxImageBytes = 10 << 20

// Options for the router
type Options struct {
	Machine   *navigation.Machine
	Reminders *reminder.Store
	Notices   *Notices
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

type handler struct {
	machine   *navigation.Machine
	reminders *reminder.Store
	notices   *Notices
	logger    *zap.Logger
}

// NewRouter for the presentation API
func NewRouter(opts Options) http.Handler {
	logger := logging.OrNop(opts.Logger)

	notices := opts.Notices
	if notices == nil {
		notices = NewNotices()
	}

	h := &handler{
		machine:   opts.Machine,
		reminders: opts.Reminders,
		notices:   notices,
		logger:    logger,
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/navigate", h.navigate)

		r.Post("/search/query", h.searchQuery)
		r.Post("/search", h.search)
		r.Post("/scan", h.scan)
		r.Post("/translate", h.translate)

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", h.listReminders)
			r.Post("/", h.createReminder)
			r.Post("/quick", h.quickAddReminder)
			r.Post("/new", h.newReminder)
			r.Delete("/{id}", h.removeReminder)
		})

		r.Get("/notices", h.listNotices)
		r.Delete("/notices", h.dismissNotices)

		r.Get("/languages", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, medicine.Languages)
		})
		r.Get("/suggestions", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, medicine.SearchSuggestions)
		})
	})

	return r
}

type stateResponse struct {
	State   navigation.State `json:"state"`
	Notices []Notice         `json:"notices"`
}

type navigateRequest struct {
	View navigation.View `json:"view"`
}

type queryRequest struct {
	Query *string `json:"query"`
}

type translateRequest struct {
	Language string `json:"language"`
}

type remindersResponse struct {
	Reminders []db.Reminder `json:"reminders"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decode the request body into v, an empty body leaves v untouched
func decode(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

// statusFor maps a flow error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, navigation.ErrEmptyQuery),
		errors.Is(err, navigation.ErrEmptyImage),
		errors.Is(err, navigation.ErrUnknownView),
		errors.Is(err, navigation.ErrUnknownLanguage),
		errors.Is(err, reminder.ErrInvalidDraft):
		return http.StatusBadRequest
	case errors.Is(err, navigation.ErrBusy),
		errors.Is(err, navigation.ErrWrongView),
		errors.Is(err, navigation.ErrNoMedicine),
		errors.Is(err, navigation.ErrSuperseded):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (h *handler) writeState(w http.ResponseWriter, status int) {
	writeJSON(w, status, stateResponse{
		State:   h.machine.State(),
		Notices: h.notices.List(),
	})
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err))
	}

	writeError(w, status, err.Error())
}

func (h *handler) state(w http.ResponseWriter, _ *http.Request) {
	h.writeState(w, http.StatusOK)
}

func (h *handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.machine.Navigate(req.View); err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeState(w, http.StatusOK)
}

func (h *handler) searchQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil || req.Query == nil {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	h.machine.SetSearchQuery(*req.Query)
	h.writeState(w, http.StatusOK)
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query != nil {
		h.machine.SetSearchQuery(*req.Query)
	}

	if err := h.machine.SubmitSearch(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeState(w, http.StatusOK)
}

func (h *handler) scan(w http.ResponseWriter, r *http.Request) {
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImageBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	if err := h.machine.SubmitScan(r.Context(), image, r.Header.Get("Content-Type")); err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeState(w, http.StatusOK)
}

func (h *handler) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.machine.Translate(r.Context(), req.Language); err != nil {
		h.fail(w, r, err)
		return
	}

	h.writeState(w, http.StatusOK)
}

func (h *handler) listReminders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, remindersResponse{Reminders: h.reminders.List()})
}

func (h *handler) createReminder(w http.ResponseWriter, r *http.Request) {
	var draft reminder.Draft
	if err := decode(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.machine.CommitReminder(draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) quickAddReminder(w http.ResponseWriter, r *http.Request) {
	created, err := h.machine.QuickAddReminder()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) newReminder(w http.ResponseWriter, _ *http.Request) {
	h.machine.AddNewReminder()
	h.writeState(w, http.StatusOK)
}

func (h *handler) removeReminder(w http.ResponseWriter, r *http.Request) {
	if !h.machine.RemoveReminder(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listNotices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.notices.List())
}

func (h *handler) dismissNotices(w http.ResponseWriter, _ *http.Request) {
	h.notices.Dismiss()
	w.WriteHeader(http.StatusNoContent)
}
