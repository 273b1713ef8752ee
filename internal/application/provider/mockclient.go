package provider

import (
	"context"
	"sync"
)

// MockClient is an in-memory provider used by tests and local development.
// Snapshots are keyed by resource id; searches scan correlation keys.
type MockClient struct {
	mu            sync.RWMutex
	payments      map[string]*Payment
	subscriptions map[string]*Subscription
	err           error
	calls         int
}

func NewMockClient() *MockClient {
	return &MockClient{
		payments:      make(map[string]*Payment),
		subscriptions: make(map[string]*Subscription),
	}
}

// SetPayment installs or replaces a payment snapshot.
func (m *MockClient) SetPayment(p *Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
}

// SetSubscription installs or replaces a subscription snapshot.
func (m *MockClient) SetSubscription(s *Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[s.ID] = s
}

// FailWith makes every subsequent call return the given error.
func (m *MockClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many client calls were made.
func (m *MockClient) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func (m *MockClient) GetPayment(ctx context.Context, id string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockClient) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockClient) SearchPayments(ctx context.Context, correlationKey string) ([]*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []*Payment
	for _, p := range m.payments {
		if p.CorrelationKey == correlationKey {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockClient) SearchSubscriptions(ctx context.Context, correlationKey string) ([]*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []*Subscription
	for _, s := range m.subscriptions {
		if s.CorrelationKey == correlationKey {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}
