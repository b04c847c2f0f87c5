package testutil

import (
	"context"
	"sync"

	"github.com/cassiomorais/checkout/internal/domain/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/providers"
	"github.com/cassiomorais/checkout/internal/repository/postgres"
	"github.com/google/uuid"
)

// --- Attempt Repository Mock ---

// MockAttemptRepository is a mock implementation of checkout.AttemptRepository.
type MockAttemptRepository struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*checkout.Attempt

	CreateFunc  func(ctx context.Context, a *checkout.Attempt) error
	ResolveFunc func(ctx context.Context, a *checkout.Attempt) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*checkout.Attempt, error)
}

func NewMockAttemptRepository() *MockAttemptRepository {
	return &MockAttemptRepository{
		attempts: make(map[uuid.UUID]*checkout.Attempt),
	}
}

func (m *MockAttemptRepository) Create(ctx context.Context, a *checkout.Attempt) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.attempts[a.ID] = &cp
	return nil
}

func (m *MockAttemptRepository) Resolve(ctx context.Context, a *checkout.Attempt) error {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.attempts[a.ID]
	if !ok {
		return domainErrors.ErrAttemptNotFound
	}
	if !stored.IsPending() {
		return domainErrors.ErrAttemptAlreadyResolved
	}
	cp := *a
	m.attempts[a.ID] = &cp
	return nil
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*checkout.Attempt, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, domainErrors.ErrAttemptNotFound
	}
	cp := *a
	return &cp, nil
}

// Stored returns the stored attempt without going through GetByIDFunc.
func (m *MockAttemptRepository) Stored(id uuid.UUID) *checkout.Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

// --- Checkout Provider Mock ---

// MockProvider records every Open and keeps the callbacks it was handed so a
// test can play the provider's verdict.
type MockProvider struct {
	mu        sync.Mutex
	requests  []providers.OpenRequest
	callbacks []providers.Callbacks

	NameValue    string
	VersionValue string
	OpenFunc     func(ctx context.Context, req providers.OpenRequest, cb providers.Callbacks) error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{NameValue: "mock", VersionValue: "1.6.40"}
}

func (m *MockProvider) Name() string    { return m.NameValue }
func (m *MockProvider) Version() string { return m.VersionValue }

func (m *MockProvider) Open(ctx context.Context, req providers.OpenRequest, cb providers.Callbacks) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.callbacks = append(m.callbacks, cb)
	m.mu.Unlock()

	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, req, cb)
	}
	return nil
}

func (m *MockProvider) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent open request. It panics if Open was
// never called.
func (m *MockProvider) LastRequest() providers.OpenRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// LastCallbacks returns the callbacks handed to the most recent Open.
func (m *MockProvider) LastCallbacks() providers.Callbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callbacks[len(m.callbacks)-1]
}

// --- Stream Publisher Mock ---

type PublishedOpen struct {
	AttemptID string
	Payload   checkout.Payload
}

type PublishedOutcome struct {
	AttemptID string
	Record    checkout.Record
}

// MockPublisher records open requests and outcomes instead of writing them
// to a stream.
type MockPublisher struct {
	mu       sync.Mutex
	opens    []PublishedOpen
	outcomes []PublishedOutcome

	PublishOpenFunc    func(ctx context.Context, attemptID string, payload checkout.Payload) error
	PublishOutcomeFunc func(ctx context.Context, attemptID string, rec checkout.Record) error
}

func (m *MockPublisher) PublishOpen(ctx context.Context, attemptID string, payload checkout.Payload) error {
	if m.PublishOpenFunc != nil {
		if err := m.PublishOpenFunc(ctx, attemptID, payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens = append(m.opens, PublishedOpen{AttemptID: attemptID, Payload: payload})
	return nil
}

func (m *MockPublisher) PublishOutcome(ctx context.Context, attemptID string, rec checkout.Record) error {
	if m.PublishOutcomeFunc != nil {
		if err := m.PublishOutcomeFunc(ctx, attemptID, rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, PublishedOutcome{AttemptID: attemptID, Record: rec})
	return nil
}

func (m *MockPublisher) Opens() []PublishedOpen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedOpen(nil), m.opens...)
}

func (m *MockPublisher) Outcomes() []PublishedOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedOutcome(nil), m.outcomes...)
}

// --- Idempotency Store Mock ---

// MockIdempotencyStore keeps responses in memory. Like the postgres
// repository, the first response stored for a key wins.
type MockIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*postgres.IdempotencyEntry

	GetErr error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{entries: make(map[string]*postgres.IdempotencyEntry)}
}

func (m *MockIdempotencyStore) Get(ctx context.Context, key string) (*postgres.IdempotencyEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.entries[key], nil
}

func (m *MockIdempotencyStore) Set(ctx context.Context, e *postgres.IdempotencyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.Key]; !ok {
		cp := *e
		m.entries[e.Key] = &cp
	}
	return nil
}

func (m *MockIdempotencyStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}
