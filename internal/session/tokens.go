// Package session owns the per-shopper credential pair and the session
// object that is threaded through the gateway, cart and checkout layers.
package session

import (
	"context"
	"log"
	"sync"
)

const (
	KeyAccess  = "access"
	KeyRefresh = "refresh"
)

// Credential is the access/refresh pair. Both fields are set or both are empty.
type Credential struct {
	Access  string
	Refresh string
}

func (c Credential) Valid() bool { return c.Access != "" && c.Refresh != "" }

// Persister is durable storage for the credential, keyed like browser
// storage ("access", "refresh").
type Persister interface {
	Load(ctx context.Context) (Credential, error)
	Save(ctx context.Context, c Credential) error
	Clear(ctx context.Context) error
}

// TokenStore holds the current credential in memory and mirrors every change
// to its Persister. The refresh token is stored but not used by any call path.
type TokenStore struct {
	mu      sync.Mutex
	cred    Credential
	persist Persister
}

func NewTokenStore(p Persister) *TokenStore {
	if p == nil {
		p = NewMemoryPersister()
	}
	return &TokenStore{persist: p}
}

// restore loads the persisted pair. A half-present pair is discarded.
func (s *TokenStore) restore(ctx context.Context) error {
	c, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !c.Valid() {
		if c.Access != "" || c.Refresh != "" {
			log.Printf("[session] discarding incomplete persisted credential")
			return s.persist.Clear(ctx)
		}
		return nil
	}
	s.cred = c
	return nil
}

// Set stores both tokens. If either is empty the call is a no-op.
func (s *TokenStore) Set(ctx context.Context, access, refresh string) error {
	c := Credential{Access: access, Refresh: refresh}
	if !c.Valid() {
		log.Printf("[session] ignoring credential with empty token")
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist.Save(ctx, c); err != nil {
		return err
	}
	s.cred = c
	return nil
}

// Access returns the current access token and whether one is present.
func (s *TokenStore) Access() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred.Access, s.cred.Access != ""
}

func (s *TokenStore) Refresh() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred.Refresh, s.cred.Refresh != ""
}

// Clear removes both tokens. Safe to call when nothing is stored. The
// in-memory pair is dropped even if the persister fails.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = Credential{}
	return s.persist.Clear(ctx)
}
