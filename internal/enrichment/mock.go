package enrichment

import (
	"context"
	"sync"

	"github.com/rentshield/rentshield/internal/inference"
)

// MockQuerier answers model requests from canned replies keyed by
// operation, without a model server. It records every request it sees.
type MockQuerier struct {
	mu       sync.Mutex
	replies  map[string]string
	failures map[string]error
	requests []inference.Request
}

// NewMockQuerier creates an empty MockQuerier. Unscripted operations reply
// with an empty JSON object.
func NewMockQuerier() *MockQuerier {
	return &MockQuerier{
		replies:  make(map[string]string),
		failures: make(map[string]error),
	}
}

// Reply scripts the raw model text returned for operation.
func (m *MockQuerier) Reply(operation, text string) *MockQuerier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[operation] = text
	return m
}

// Fail scripts an error for operation.
func (m *MockQuerier) Fail(operation string, err error) *MockQuerier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[operation] = err
	return m
}

// Query implements Querier.
func (m *MockQuerier) Query(ctx context.Context, req inference.Request) (inference.Payload, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.failures[req.Operation]
	text, ok := m.replies[req.Operation]
	m.mu.Unlock()

	if err != nil {
		return inference.Payload{}, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return inference.Payload{}, ctxErr
	}
	if !ok {
		text = "{}"
	}
	if req.ExpectJSON {
		return inference.Repair(text), nil
	}
	return inference.TextPayload(text), nil
}

// Requests returns a copy of the requests seen so far.
func (m *MockQuerier) Requests() []inference.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]inference.Request(nil), m.requests...)
}
