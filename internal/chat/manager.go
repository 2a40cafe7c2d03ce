package chat

import "sync"

// Manager gives each session key exclusive ownership of its own Session.
// There is no ambient process-wide session: callers always address state
// through a key.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  func() *Session
}

// NewManager creates a session manager. The factory builds a fresh Session
// whenever an unknown key is addressed.
func NewManager(factory func() *Session) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
	}
}

// Get returns the session for the key, creating it on first use.
func (m *Manager) Get(key string) *Session {
	if key == "" {
		key = "default"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}
	s := m.factory()
	m.sessions[key] = s
	return s
}

// Keys returns the known session keys.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	return keys
}
