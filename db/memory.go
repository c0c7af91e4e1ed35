package db

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Memory db implementation keeping the serialized collection in process.
// Used when no badger path is configured and by tests.
type Memory struct {
	mu   sync.Mutex
	data []byte
	// FailSave makes SaveReminders return an error when set
	FailSave bool
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

// LoadReminders from memory
func (m *Memory) LoadReminders() ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}

	var reminders []Reminder
	err := json.Unmarshal(m.data, &reminders)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal reminders value: %w", err)
	}

	return reminders, nil
}

// SaveReminders to memory
func (m *Memory) SaveReminders(reminders []Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave {
		return fmt.Errorf("memory store is failing saves")
	}

	data, err := json.Marshal(reminders)
	if err != nil {
		return fmt.Errorf("failed to JSON marshal reminders: %w", err)
	}

	m.data = data

	return nil
}

// SetRaw replaces the serialized collection as is
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = data
}
