// Package navigation tracks which view the user is on and the working state
// of the scan, search, details and reminder flows.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"git.0xdad.com/tblyler/medilens/db"
	"git.0xdad.com/tblyler/medilens/logging"
	"git.0xdad.com/tblyler/medilens/medicine"
	"git.0xdad.com/tblyler/medilens/metrics"
	"git.0xdad.com/tblyler/medilens/reminder"
)

// Messages shown to the user when a lookup fails
const (
	SearchFailedMessage      = "Search failed, please try again"
	ScanFailedMessage        = "Failed to analyze the image, ensure the label is clear"
	TranslationFailedMessage = "Translation failed"
)

var (
	// ErrEmptyQuery occurs when a blank search is submitted, nothing is looked up
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrEmptyImage occurs when a scan is submitted without image data
	ErrEmptyImage = errors.New("no image to scan")
	// ErrBusy occurs when the same lookup is already in flight
	ErrBusy = errors.New("lookup already in progress")
	// ErrWrongView occurs when an action is not available on the current view
	ErrWrongView = errors.New("action not available on this view")
	// ErrNoMedicine occurs when an action needs a selected medicine
	ErrNoMedicine = errors.New("no medicine selected")
	// ErrUnknownView occurs when navigating to a view that does not exist
	ErrUnknownView = errors.New("unknown view")
	// ErrUnknownLanguage occurs when translating to an unsupported language
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrSuperseded occurs when a lookup result arrives after the user moved on
	ErrSuperseded = errors.New("lookup result discarded, view changed")
)

// Lookup resolves medicines and translates their details
type Lookup interface {
	LookupByImage(ctx context.Context, image []byte, mimeType string) (*medicine.Record, error)
	LookupByName(ctx context.Context, query string) (*medicine.Record, error)
	Translate(ctx context.Context, rec *medicine.Record, languageName string) (string, error)
}

// Alerter shows a dismissable message to the user
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter
type AlertFunc func(message string)

// Alert calls f
func (f AlertFunc) Alert(message string) {
	f(message)
}

// Machine is the navigation state machine. It is safe for concurrent use,
// lookups run without holding the lock and their results only apply if
// nothing superseded them in the meantime.
type Machine struct {
	mu    sync.Mutex
	state State

	// bumped on every view change and per lookup kind, results carrying an
	// older value are discarded
	viewSeq      uint64
	searchSeq    uint64
	scanSeq      uint64
	translateSeq uint64

	lookup    Lookup
	reminders *reminder.Store
	alerter   Alerter
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New machine starting on the home view
func New(lookup Lookup, reminders *reminder.Store, alerter Alerter, logger *zap.Logger, m *metrics.Metrics) *Machine {
	if alerter == nil {
		alerter = AlertFunc(func(string) {})
	}

	return &Machine{
		state: State{
			View:                Home,
			TranslationLanguage: medicine.DefaultLanguage,
		},
		lookup:    lookup,
		reminders: reminders,
		alerter:   alerter,
		logger:    logging.OrNop(logger),
		metrics:   m,
	}
}

// State snapshot
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// must be called with m.mu held
func (m *Machine) setViewLocked(view View) {
	if m.state.View == view {
		return
	}

	m.logger.Debug("view changed", zap.Stringer("from", m.state.View), zap.Stringer("to", view))
	m.state.View = view
	m.viewSeq++
}

// must be called with m.mu held
func (m *Machine) selectLocked(rec *medicine.Record) {
	m.state.Selected = rec
	m.state.Translation = ""
	m.state.TranslationLanguage = medicine.DefaultLanguage
	m.state.IsTranslating = false
	m.translateSeq++
}

// Navigate directly to view. The details view needs a selected medicine.
func (m *Machine) Navigate(view View) error {
	if !view.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownView, string(view))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if view == Details && m.state.Selected == nil {
		return ErrNoMedicine
	}

	m.setViewLocked(view)

	return nil
}

// AddNewReminder starts a new search with a cleared query
func (m *Machine) AddNewReminder() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.SearchQuery = ""
	m.setViewLocked(Search)
}

// SetSearchQuery as typed by the user
func (m *Machine) SetSearchQuery(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.SearchQuery = query
}

func (m *Machine) fail(kind, message string, err error) error {
	m.logger.Warn("lookup failed", zap.String("kind", kind), zap.Error(err))
	m.alerter.Alert(message)

	return err
}

func (m *Machine) superseded(kind string) error {
	m.metrics.StaleLookup()
	m.logger.Info("discarding superseded lookup result", zap.String("kind", kind))

	return ErrSuperseded
}

func checkRecord(rec *medicine.Record, err error) error {
	if err != nil {
		return err
	}

	if rec == nil {
		return fmt.Errorf("lookup returned no medicine: %w", medicine.ErrIncomplete)
	}

	return rec.Validate()
}

// SubmitSearch looks up the current search query and shows the result on
// the details view. A blank query does nothing. On failure the view stays
// on search and the user is alerted once.
func (m *Machine) SubmitSearch(ctx context.Context) error {
	m.mu.Lock()
	if m.state.View != Search {
		m.mu.Unlock()
		return ErrWrongView
	}

	query := strings.TrimSpace(m.state.SearchQuery)
	if query == "" {
		m.mu.Unlock()
		return ErrEmptyQuery
	}

	if m.state.IsSearching {
		m.mu.Unlock()
		return ErrBusy
	}

	m.searchSeq++
	seq, viewSeq := m.searchSeq, m.viewSeq
	m.state.IsSearching = true
	m.mu.Unlock()

	rec, err := m.lookup.LookupByName(ctx, query)
	err = checkRecord(rec, err)

	m.mu.Lock()
	if m.searchSeq == seq {
		m.state.IsSearching = false
	}

	if err != nil {
		m.mu.Unlock()
		return m.fail("search", SearchFailedMessage, err)
	}

	if m.searchSeq != seq || m.viewSeq != viewSeq {
		m.mu.Unlock()
		return m.superseded("search")
	}

	m.selectLocked(rec)
	m.setViewLocked(Details)
	m.mu.Unlock()

	return nil
}

// SubmitScan identifies the medicine in image and shows it on the details
// view. On failure the view stays on scan and the user is alerted once.
func (m *Machine) SubmitScan(ctx context.Context, image []byte, mimeType string) error {
	if len(image) == 0 {
		return ErrEmptyImage
	}

	m.mu.Lock()
	if m.state.View != Scan {
		m.mu.Unlock()
		return ErrWrongView
	}

	if m.state.IsScanning {
		m.mu.Unlock()
		return ErrBusy
	}

	m.scanSeq++
	seq, viewSeq := m.scanSeq, m.viewSeq
	m.state.IsScanning = true
	m.mu.Unlock()

	rec, err := m.lookup.LookupByImage(ctx, image, mimeType)
	err = checkRecord(rec, err)

	m.mu.Lock()
	if m.scanSeq == seq {
		m.state.IsScanning = false
	}

	if err != nil {
		m.mu.Unlock()
		return m.fail("scan", ScanFailedMessage, err)
	}

	if m.scanSeq != seq || m.viewSeq != viewSeq {
		m.mu.Unlock()
		return m.superseded("scan")
	}

	m.selectLocked(rec)
	m.setViewLocked(Details)
	m.mu.Unlock()

	return nil
}

// Translate the selected medicine into the language with code. The default
// language clears the translation without a lookup. A newer translation
// request supersedes a pending one.
func (m *Machine) Translate(ctx context.Context, code string) error {
	lang, ok := medicine.LanguageByCode(code)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}

	m.mu.Lock()
	if m.state.View != Details {
		m.mu.Unlock()
		return ErrWrongView
	}

	rec := m.state.Selected
	if rec == nil {
		m.mu.Unlock()
		return ErrNoMedicine
	}

	m.translateSeq++
	seq := m.translateSeq
	m.state.TranslationLanguage = lang.Code

	if lang.Code == medicine.DefaultLanguage {
		m.state.Translation = ""
		m.state.IsTranslating = false
		m.mu.Unlock()
		return nil
	}

	m.state.IsTranslating = true
	m.mu.Unlock()

	text, err := m.lookup.Translate(ctx, rec, lang.Name)

	m.mu.Lock()
	if m.translateSeq != seq {
		m.mu.Unlock()
		if err != nil {
			return m.fail("translate", TranslationFailedMessage, err)
		}

		return m.superseded("translate")
	}

	m.state.IsTranslating = false
	if err != nil {
		m.state.Translation = ""
		m.mu.Unlock()
		return m.fail("translate", TranslationFailedMessage, err)
	}

	m.state.Translation = text
	m.mu.Unlock()

	return nil
}

// CommitReminder stores a reminder built from draft and shows the reminders view
func (m *Machine) CommitReminder(draft reminder.Draft) (db.Reminder, error) {
	r, err := m.reminders.Add(draft)
	if err != nil {
		return db.Reminder{}, err
	}

	m.mu.Lock()
	m.setViewLocked(Reminders)
	m.mu.Unlock()

	return r, nil
}

// QuickAddReminder commits a daily reminder derived from the selected medicine
func (m *Machine) QuickAddReminder() (db.Reminder, error) {
	m.mu.Lock()
	rec := m.state.Selected
	view := m.state.View
	m.mu.Unlock()

	if view != Details {
		return db.Reminder{}, ErrWrongView
	}

	if rec == nil {
		return db.Reminder{}, ErrNoMedicine
	}

	return m.CommitReminder(reminder.QuickAdd(rec))
}

// RemoveReminder with id, unknown ids are ignored
func (m *Machine) RemoveReminder(id string) bool {
	return m.reminders.Remove(id)
}
