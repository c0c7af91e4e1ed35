// Package reminder owns the reminder collection: the in-memory copy is the
// truth for the session and every mutation is written back before returning.
package reminder

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"git.0xdad.com/tblyler/medilens/db"
	"git.0xdad.com/tblyler/medilens/logging"
	"git.0xdad.com/tblyler/medilens/metrics"
)

var (
	// ErrStorage occurs when the collection can not be read or written
	ErrStorage = errors.New("reminder storage failure")
	// ErrInvalidDraft occurs when a reminder can not be created from a draft
	ErrInvalidDraft = errors.New("invalid reminder")
)

// DefaultDosage when none can be derived
const DefaultDosage = "1 tablet"

// Persister reads and writes the whole reminder collection
type Persister interface {
	LoadReminders() ([]db.Reminder, error)
	SaveReminders([]db.Reminder) error
}

// Draft of a reminder before it is committed
type Draft struct {
	MedicineName string      `json:"medicineName"`
	Time         string      `json:"time"`
	Dosage       string      `json:"dosage"`
	Days         db.Weekdays `json:"days,omitempty"`
}

// Store of reminders
type Store struct {
	mu        sync.Mutex
	reminders []db.Reminder
	persister Persister
	newID     func() string
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewStore backed by persister. Call Load before use.
func NewStore(persister Persister, logger *zap.Logger, m *metrics.Metrics) *Store {
	return &Store{
		persister: persister,
		newID:     NewID,
		logger:    logging.OrNop(logger),
		metrics:   m,
	}
}

// Load the collection from the persister. An absent, corrupt or unreadable
// collection yields an empty one, the failure is only logged.
func (s *Store) Load() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.persister.LoadReminders()
	if err != nil {
		s.logger.Warn("discarding unreadable reminders",
			zap.Error(fmt.Errorf("%w: %v", ErrStorage, err)))
		s.metrics.StorageFailed("load")
		reminders = nil
	}

	s.reminders = reminders
	s.metrics.SetActiveReminders(len(s.reminders))

	return len(s.reminders)
}

// save must be called with s.mu held
func (s *Store) save() {
	s.metrics.SetActiveReminders(len(s.reminders))

	err := s.persister.SaveReminders(s.copyLocked())
	if err != nil {
		s.logger.Error("failed to save reminders",
			zap.Int("count", len(s.reminders)),
			zap.Error(fmt.Errorf("%w: %v", ErrStorage, err)))
		s.metrics.StorageFailed("save")
	}
}

func (s *Store) copyLocked() []db.Reminder {
	out := make([]db.Reminder, len(s.reminders))
	copy(out, s.reminders)
	for i := range out {
		out[i].Days = append(db.Weekdays(nil), out[i].Days...)
	}

	return out
}

// Add a reminder built from draft and persist the collection
func (s *Store) Add(draft Draft) (db.Reminder, error) {
	name := strings.TrimSpace(draft.MedicineName)
	if name == "" {
		return db.Reminder{}, fmt.Errorf("medicine name is required: %w", ErrInvalidDraft)
	}

	hhmm, err := NormalizeTime(draft.Time)
	if err != nil {
		return db.Reminder{}, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	dosage := strings.TrimSpace(draft.Dosage)
	if dosage == "" {
		dosage = DefaultDosage
	}

	days := append(db.Weekdays(nil), draft.Days...)
	if len(days) == 0 {
		days = db.EveryDay()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reminder := db.Reminder{
		ID:           s.uniqueIDLocked(),
		MedicineName: name,
		Time:         hhmm,
		Dosage:       dosage,
		Days:         days,
	}

	s.reminders = append(s.reminders, reminder)
	s.save()

	s.logger.Info("reminder added",
		zap.String("id", reminder.ID),
		zap.String("medicine", reminder.MedicineName),
		zap.String("time", reminder.Time))

	return reminder, nil
}

func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if s.indexLocked(id) < 0 {
			return id
		}
	}
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.reminders {
		if r.ID == id {
			return i
		}
	}

	return -1
}

// Remove the reminder with id. Removing an unknown id is a no-op and reports false.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}

	s.reminders = append(s.reminders[:i:i], s.reminders[i+1:]...)
	s.save()

	s.logger.Info("reminder removed", zap.String("id", id))

	return true
}

// Get the reminder with id
func (s *Store) Get(id string) (db.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return db.Reminder{}, false
	}

	return s.copyLocked()[i], true
}

// Len of the collection
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.reminders)
}

// List reminders ordered by time of day
func (s *Store) List() []db.Reminder {
	s.mu.Lock()
	out := s.copyLocked()
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})

	return out
}

// Upcoming returns at most n reminders in time order and the total count
func (s *Store) Upcoming(n int) ([]db.Reminder, int) {
	all := s.List()
	if n < 0 {
		n = 0
	}

	if n > len(all) {
		n = len(all)
	}

	return all[:n], len(all)
}

// ClaimDue stamps every reminder set for hhmm that has not been notified on
// date, persists the collection and returns the stamped reminders.
func (s *Store) ClaimDue(hhmm, date string) []db.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []db.Reminder
	for i := range s.reminders {
		r := &s.reminders[i]
		if r.Time != hhmm || r.LastNotified == date {
			continue
		}

		r.LastNotified = date

		claimed := *r
		claimed.Days = append(db.Weekdays(nil), r.Days...)
		due = append(due, claimed)
	}

	if len(due) > 0 {
		s.save()
	}

	return due
}
