package render

import (
	"sync"

	"github.com/google/uuid"
)

// TokenSource produces the random tokens injected into secondary config
// file names and script file names. It is
// injectable so tests can seed a deterministic sequence, satisfying the
// Determinism property: two renders of the same (request, seed) must be
// byte-equal.
type TokenSource interface {
	Token() string
}

// UUIDTokenSource draws tokens from crypto-random UUIDs, truncated to 8
// hex characters to keep generated file names short, the way the teacher
// mints short correlation ids with google/uuid in pkg/webhook/automation.
type UUIDTokenSource struct{}

func (UUIDTokenSource) Token() string {
	return uuid.New().String()[:8]
}

// SequenceTokenSource replays a fixed list of tokens, then falls back to
// UUIDTokenSource once exhausted. Tests construct one directly to pin
// file-name randomness.
type SequenceTokenSource struct {
	mu     sync.Mutex
	tokens []string
	next   int
}

func NewSequenceTokenSource(tokens ...string) *SequenceTokenSource {
	return &SequenceTokenSource{tokens: tokens}
}

func (s *SequenceTokenSource) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < len(s.tokens) {
		t := s.tokens[s.next]
		s.next++
		return t
	}
	return UUIDTokenSource{}.Token()
}
