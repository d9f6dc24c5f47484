package session

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// Session is the explicitly owned state of one shopper: an id for log
// correlation and the token store. It is built once at start-up from
// persisted storage and torn down on logout.
type Session struct {
	ID     string
	Tokens *TokenStore
}

func Open(ctx context.Context, p Persister) (*Session, error) {
	tokens := NewTokenStore(p)
	if err := tokens.restore(ctx); err != nil {
		return nil, fmt.Errorf("restore credential: %w", err)
	}
	s := &Session{ID: uuid.NewString(), Tokens: tokens}
	_, authed := tokens.Access()
	log.Printf("[session] id=%s opened authenticated=%t", s.ID, authed)
	return s, nil
}

func (s *Session) Authenticated() bool {
	_, ok := s.Tokens.Access()
	return ok
}

// Close clears the credential. Further protected calls go out without a
// bearer token until the next login.
func (s *Session) Close(ctx context.Context) error {
	log.Printf("[session] id=%s closed", s.ID)
	return s.Tokens.Clear(ctx)
}
