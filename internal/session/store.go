package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Store is a thread-safe registry of open sessions keyed by resume id,
// with TTL eviction of idle sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	log      *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewStore(ttl time.Duration, log *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		log:      log,
	}
}

// Put registers s, replacing any idle session for the same resume. A
// session with a save or analysis running is kept and ErrInFlight returned.
func (st *Store) Put(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur, ok := st.sessions[s.ID()]; ok && cur != s && cur.Busy() {
		return fmt.Errorf("reopen %s: %w", s.ID(), ErrInFlight)
	}
	st.sessions[s.ID()] = s
	return nil
}

// Adopt registers s unless a session for the same resume is already held,
// and returns whichever session is registered afterwards.
func (st *Store) Adopt(s *Session) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur, ok := st.sessions[s.ID()]; ok {
		return cur
	}
	st.sessions[s.ID()] = s
	return s
}

// Get returns the session for id, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of open sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Cleanup removes sessions idle for longer than the TTL and returns how
// many were evicted. Sessions with a running action are kept.
func (st *Store) Cleanup() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	n := 0
	for id, s := range st.sessions {
		if now.Sub(s.LastUsed()) > st.ttl && !s.Busy() {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Start runs Cleanup every interval until Stop is called or ctx ends.
func (st *Store) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	st.cancel = cancel

	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := st.Cleanup(); n > 0 {
					st.log.Info("evicted idle sessions", "count", n, "open", st.Len())
				}
			}
		}
	}()
}

// Stop halts the cleanup goroutine and waits for it to exit.
func (st *Store) Stop() {
	if st.cancel != nil {
		st.cancel()
	}
	st.wg.Wait()
}
