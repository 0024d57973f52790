package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
	"github.com/pharmaguard-client/internal/service"
)

const (
	defaultMaxSessions = 64
	defaultSessionTTL  = 2 * time.Hour
)

// Session is one request form exposed over HTTP.
type Session struct {
	ID        string
	Workflow  *service.SubmissionWorkflow
	CreatedAt time.Time
}

// SessionManager holds the live sessions. Idle sessions expire after the TTL
// and the least recently used one is dropped when the manager is full.
type SessionManager struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	newForm  func() *service.SubmissionWorkflow
	ttl      time.Duration
}

// NewSessionManager creates a manager whose sessions submit through analysis.
func NewSessionManager(analysis domain.AnalysisService, recorder domain.HistoryRecorder, logger *logrus.Logger, maxSessions int, ttl time.Duration) *SessionManager {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionManager{
		sessions: expirable.NewLRU[string, *Session](maxSessions, nil, ttl),
		ttl:      ttl,
		newForm: func() *service.SubmissionWorkflow {
			var opts []service.WorkflowOption
			if recorder != nil {
				opts = append(opts, service.WithRecorder(recorder))
			}
			return service.NewSubmissionWorkflow(analysis, logger, opts...)
		},
	}
}

// Create starts a new idle session.
func (m *SessionManager) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Workflow:  m.newForm(),
		CreatedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Add(s.ID, s)
	return s
}

// Get returns a session and refreshes its idle timer.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions.Get(id)
	if ok {
		m.sessions.Add(id, s)
	}
	return s, ok
}

// Delete ends a session.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Remove(id)
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Len()
}
