package tickets

import (
	"fmt"
	"sync"
)

// Store is a persistent map of (server address, user) to secret.
type Store interface {
	// Get returns the first ticket for the server and user, or nil. A
	// blank user matches any user.
	Get(serverAddress, userName string) (*Ticket, error)
	List() ([]Ticket, error)
	// Save replaces the ticket stored under the same key. A blank Value
	// removes it.
	Save(t Ticket) error
	Delete(serverAddress, userName string) error
}

// MemoryStore keeps tickets for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets []Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(serverAddress, userName string) (*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return find(m.tickets, serverAddress, userName), nil
}

func (m *MemoryStore) List() ([]Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Ticket(nil), m.tickets...), nil
}

func (m *MemoryStore) Save(t Ticket) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.ServerAddress = NormalizeAddress(t.ServerAddress)

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tickets[:0]
	replaced := false
	for _, existing := range m.tickets {
		if existing.Key() != t.Key() {
			kept = append(kept, existing)
			continue
		}
		if !replaced && t.Value != "" {
			kept = append(kept, t)
		}
		replaced = true
	}
	if !replaced && t.Value != "" {
		kept = append(kept, t)
	}
	m.tickets = kept
	return nil
}

func (m *MemoryStore) Delete(serverAddress, userName string) error {
	if userName == "" {
		return fmt.Errorf("%w: blank user name", ErrInvalidTicket)
	}
	return m.Save(Ticket{ServerAddress: serverAddress, UserName: userName})
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
