package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"hermes/pkg/errors"
)

// Key identifies the conversation/participant pair a pending interaction
// belongs to. Group chats track per-sender state independently, so the
// sender is part of the key.
type Key struct {
	ChatID string
	Sender string
}

// String renders the key for logging and for the Redis key space
func (k Key) String() string {
	return k.ChatID + "#" + k.Sender
}

// Option is one selectable entry in a presented menu
type Option struct {
	Label    string `json:"label"`
	Selector string `json:"selector"`
}

// Selection is the result of consuming a pending session
type Selection struct {
	Label    string
	Selector string
	Ref      string
}

// Session is the in-memory record of a pending single-use multi-step choice
type Session struct {
	Ref       string    `json:"ref"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

// Store tracks at most one pending selection per key.
//
// Present overwrites any live session for the key and returns the menu text
// to send back. Resolve consumes the session on a valid 1-based index,
// returns ErrInvalidChoice (session preserved) on any other input, and
// ErrNoSession when nothing is pending for the key.
type Store interface {
	Present(ctx context.Context, key Key, ref string, options []Option) (string, error)
	Resolve(ctx context.Context, key Key, rawText string) (Selection, error)
	Exists(ctx context.Context, key Key) (bool, error)
	Delete(ctx context.Context, key Key) error
}

// FormatMenu renders options as a 1-based numbered list
func FormatMenu(options []Option) string {
	var b strings.Builder
	b.WriteString("Reply with a number to choose:\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt.Label)
	}
	return strings.TrimRight(b.String(), "\n")
}

// parseChoice maps raw reply text onto a 0-based option index.
// The trimmed text must exactly equal the decimal form of a 1-based index.
func parseChoice(rawText string, optionCount int) (int, error) {
	trimmed := strings.TrimSpace(rawText)
	choice, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, errors.ErrInvalidChoice
	}
	// Atoi also accepts non-canonical numerals like "02" and "+2";
	// only the exact decimal rendering of an index counts as a reply.
	if strconv.Itoa(choice) != trimmed {
		return 0, errors.ErrInvalidChoice
	}
	if choice < 1 || choice > optionCount {
		return 0, errors.ErrInvalidChoice
	}
	return choice - 1, nil
}

// MemoryStore implements Store with process-lifetime in-memory storage.
// All operations are serialized behind a single mutex: webhook dispatch
// runs one goroutine per notification and the map is shared across them.
type MemoryStore struct {
	sessions map[Key]*Session
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[Key]*Session),
	}
}

// Present stores a new session at key, silently replacing any prior one,
// and returns the numbered menu text for the options.
func (s *MemoryStore) Present(ctx context.Context, key Key, ref string, options []Option) (string, error) {
	if len(options) == 0 {
		return "", errors.Wrap(errors.ErrInvalidInput, "options must be non-empty")
	}

	s.mu.Lock()
	s.sessions[key] = &Session{
		Ref:       ref,
		Options:   options,
		CreatedAt: time.Now(),
	}
	s.mu.Unlock()

	return FormatMenu(options), nil
}

// Resolve interprets rawText as a selection reply for the pending session at key.
// A valid index consumes the session; an invalid one preserves it so the same
// menu can be answered again.
func (s *MemoryStore) Resolve(ctx context.Context, key Key, rawText string) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[key]
	if !exists {
		return Selection{}, errors.ErrNoSession
	}

	idx, err := parseChoice(rawText, len(sess.Options))
	if err != nil {
		return Selection{}, err
	}

	delete(s.sessions, key)

	opt := sess.Options[idx]
	return Selection{
		Label:    opt.Label,
		Selector: opt.Selector,
		Ref:      sess.Ref,
	}, nil
}

// Exists checks whether a session is pending for key
func (s *MemoryStore) Exists(ctx context.Context, key Key) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.sessions[key]
	return exists, nil
}

// Delete removes any pending session for key
func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
	return nil
}

// Cleanup removes sessions older than maxAge and returns how many were
// dropped. Abandoned flows would otherwise stay resident until the key
// is reused or the process restarts.
func (s *MemoryStore) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for key, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, key)
			removed++
		}
	}

	return removed
}

// Count returns the number of pending sessions
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Clear removes all sessions (for testing)
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[Key]*Session)
}
