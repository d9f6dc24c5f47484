// Package account signs shoppers up and in, and tears the session down on
// logout.
package account

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/MikeMC777/ordenes-storefront/internal/apperr"
	"github.com/MikeMC777/ordenes-storefront/internal/config"
	"github.com/MikeMC777/ordenes-storefront/internal/session"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// AuthResponse is what signup and login return.
type AuthResponse struct {
	User    User   `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type API interface {
	Get(ctx context.Context, path string, out any) error
	PostPublic(ctx context.Context, path string, in, out any) error
}

// Resetter is anything holding per-session state that must not outlive a
// logout, such as the cart.
type Resetter interface {
	Reset()
}

type Service struct {
	api     API
	routes  config.Routes
	sess    *session.Session
	onClose []Resetter
}

func NewService(api API, routes config.Routes, sess *session.Session, onClose ...Resetter) *Service {
	return &Service{api: api, routes: routes, sess: sess, onClose: onClose}
}

// Signup registers and signs in. Email is optional, as on the backend.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("account.Signup", "username and password are required")
	}
	in := map[string]string{"username": username, "email": strings.TrimSpace(email), "password": password}
	u, err := s.authenticate(ctx, "account.Signup", s.routes.Signup, in)
	if err != nil {
		return nil, err
	}
	log.Printf("[account] session=%s signed up user=%s", s.sess.ID, u.Username)
	return u, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.Validation("account.Login", "username and password are required")
	}
	in := map[string]string{"username": username, "password": password}
	u, err := s.authenticate(ctx, "account.Login", s.routes.Login, in)
	if err != nil {
		return nil, err
	}
	log.Printf("[account] session=%s logged in user=%s", s.sess.ID, u.Username)
	return u, nil
}

// authenticate posts credentials and installs the issued pair. Whenever the
// credential changes hands, session-scoped state from the previous holder is
// reset first.
func (s *Service) authenticate(ctx context.Context, op, path string, in map[string]string) (*User, error) {
	var out AuthResponse
	if err := s.api.PostPublic(ctx, path, in, &out); err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			s.resetScoped()
		}
		return nil, err
	}
	if out.Access == "" || out.Refresh == "" {
		return nil, &apperr.Error{Kind: apperr.KindServer, Op: op, Detail: "incomplete token pair in response"}
	}
	s.resetScoped()
	if err := s.sess.Tokens.Set(ctx, out.Access, out.Refresh); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (s *Service) resetScoped() {
	for _, r := range s.onClose {
		r.Reset()
	}
}

func (s *Service) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := s.api.Get(ctx, s.routes.Profile, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout clears the credential and resets session-scoped state. No backend
// call is made.
func (s *Service) Logout(ctx context.Context) error {
	s.resetScoped()
	return s.sess.Close(ctx)
}
