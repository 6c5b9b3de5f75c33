package dashboard

import (
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live sessions of a server.
type Manager struct {
	svc Services
	// MaxSessions bounds the number of live sessions; the oldest is dropped
	// when a new one would exceed it.
	MaxSessions int

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(svc Services) *Manager {
	if svc.Log == nil {
		svc.Log = zap.NewNop()
	}
	return &Manager{svc: svc, MaxSessions: 64, sessions: make(map[string]*Session)}
}

// Create starts an empty session.
func (m *Manager) Create() *Session {
	s := NewSession(m.svc)
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.MaxSessions > 0 && len(m.sessions) >= m.MaxSessions {
		m.evictOldest()
	}
	m.sessions[s.ID] = s
	return s
}

func (m *Manager) evictOldest() {
	var oldest *Session
	for _, s := range m.sessions {
		if oldest == nil || s.Created.Before(oldest.Created) {
			oldest = s
		}
	}
	if oldest != nil {
		delete(m.sessions, oldest.ID)
		m.svc.Log.Info("session evicted", zap.String("session", oldest.ID))
	}
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// SessionInfo is a listing entry.
type SessionInfo struct {
	ID      string    `json:"id"`
	Dataset string    `json:"dataset,omitempty"`
	Rows    int       `json:"rows"`
	Created time.Time `json:"created"`
}

// List returns the live sessions, newest first.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		info := SessionInfo{ID: s.ID, Created: s.Created}
		if ds, _, _, err := s.snapshot(); err == nil {
			info.Dataset, info.Rows = ds.Name, ds.Len()
		}
		out = append(out, info)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out
}
