package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/defect-lens/internal/domain"
)

// MockDefectRepository is a mock implementation of domain.DefectRepository for testing.
type MockDefectRepository struct {
	Defects []domain.Defect
	ListErr error
}

func (m *MockDefectRepository) List(ctx context.Context) ([]domain.Defect, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Defects, nil
}

// RedactCall records one invocation of MockRedactor.Redact.
type RedactCall struct {
	Text string
	Role domain.UserRole
}

// MockRedactor is a mock implementation of domain.Redactor for testing.
// RedactFunc, when set, decides the result; otherwise Result and Err are returned.
type MockRedactor struct {
	mu         sync.Mutex
	Calls      []RedactCall
	Result     string
	Err        error
	RedactFunc func(ctx context.Context, text string, role domain.UserRole) (string, error)
}

func (m *MockRedactor) Redact(ctx context.Context, text string, role domain.UserRole) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RedactCall{Text: text, Role: role})
	fn := m.RedactFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, role)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Result, nil
}

// CallCount returns the number of Redact invocations so far.
func (m *MockRedactor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockRedactionCache is an in-memory domain.RedactionCache for testing.
type MockRedactionCache struct {
	mu     sync.Mutex
	Values map[string]string
	GetErr error
	SetErr error
}

func (m *MockRedactionCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.Values[key]
	return v, ok, nil
}

func (m *MockRedactionCache) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	m.Values[key] = value
	return nil
}

// MockJournalRepository is a mock implementation of domain.JournalRepository for testing.
type MockJournalRepository struct {
	mu        sync.Mutex
	Entries   []domain.SafetyLog
	AppendErr error
	ReplayErr error
}

func (m *MockJournalRepository) Append(ctx context.Context, entry domain.SafetyLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockJournalRepository) Replay(ctx context.Context, handler func(entry domain.SafetyLog) error) error {
	m.mu.Lock()
	entries := append([]domain.SafetyLog(nil), m.Entries...)
	m.mu.Unlock()
	if m.ReplayErr != nil {
		return m.ReplayErr
	}
	for _, e := range entries {
		if err := handler(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockJournalRepository) Truncate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = nil
	return nil
}
