// Package controller validates user input, manages the login session and
// translates backend failures into messages for the CLI and the terminal UI.
package controller

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"binops/internal/client"
	"binops/internal/logging"
	"binops/internal/store"

	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// AuthAPI is the part of the backend client Auth needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, token string) error
}

// Auth handles login and logout.
type Auth struct {
	api      AuthAPI
	sessions *Sessions
	journal  *store.Store
	logger   *zap.Logger
}

// NewAuth wires an Auth controller.
func NewAuth(api AuthAPI, sessions *Sessions, journal *store.Store, logger *zap.Logger) *Auth {
	return &Auth{
		api:      api,
		sessions: sessions,
		journal:  journal,
		logger:   logging.For(logger, logging.CategorySession),
	}
}

// Login validates the input, authenticates against the backend and stores the
// session. The stored email is trimmed.
func (a *Auth) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return nil, invalid("email", "email must not be empty")
	case password == "":
		return nil, invalid("password", "password must not be empty")
	case !ValidEmail(email):
		return nil, invalid("email", "email format is not valid")
	}

	token, err := a.api.Login(ctx, email, password)
	if err != nil {
		a.record("login", email, err)
		if errors.Is(err, client.ErrUnauthorized) {
			a.logger.Info("login rejected", zap.String("email", email))
			return nil, &Error{Op: "login", Msg: "login failed", Err: ErrInvalidCredentials}
		}
		var se *client.StatusError
		if errors.As(err, &se) {
			a.logger.Warn("login failed", zap.String("email", email), zap.Int("status", se.Code))
			return nil, &Error{Op: "login", Msg: "server error", Err: err}
		}
		a.logger.Warn("login failed", zap.String("email", email), zap.Error(err))
		return nil, &Error{Op: "login", Msg: "connection error", Err: err}
	}

	sess, err := a.sessions.Set(token, email)
	if err != nil {
		return nil, &Error{Op: "login", Msg: "could not save session", Err: err}
	}
	a.record("login", email, nil)
	a.logger.Info("logged in", zap.String("email", email))
	return sess, nil
}

// Logout ends the session. Any answer but success, 401 included, is a refusal
// and keeps the local session so the user can retry; when the backend cannot
// be reached at all, the local session is dropped anyway and the error still
// returned.
func (a *Auth) Logout(ctx context.Context) error {
	sess, err := a.sessions.Current()
	if err != nil {
		return &Error{Op: "logout", Msg: "could not read session", Err: err}
	}
	if sess == nil {
		return ErrNoSession
	}

	err = a.api.Logout(ctx, sess.Token)
	a.record("logout", sess.Email, err)

	var se *client.StatusError
	switch {
	case err == nil:
	case errors.Is(err, client.ErrUnauthorized):
		a.logger.Warn("logout refused", zap.Int("status", http.StatusUnauthorized))
		return &Error{Op: "logout", Msg: "server could not close the session", Err: err}
	case errors.As(err, &se):
		a.logger.Warn("logout refused", zap.Int("status", se.Code))
		return &Error{Op: "logout", Msg: "server could not close the session", Err: err}
	default:
		_ = a.sessions.Clear()
		a.logger.Warn("logout failed, local session cleared", zap.Error(err))
		return &Error{Op: "logout", Msg: "error during logout", Err: err}
	}

	if err := a.sessions.Clear(); err != nil {
		return &Error{Op: "logout", Msg: "could not clear local session", Err: err}
	}
	a.logger.Info("logged out", zap.String("email", sess.Email))
	return nil
}

// Current returns the active session or nil.
func (a *Auth) Current() (*Session, error) {
	return a.sessions.Current()
}

// HasActiveSession reports whether a usable session is stored.
func (a *Auth) HasActiveSession() bool {
	sess, err := a.sessions.Current()
	return err == nil && sess != nil
}

// CurrentEmail returns the logged-in email, or "".
func (a *Auth) CurrentEmail() string {
	sess, err := a.sessions.Current()
	if err != nil || sess == nil {
		return ""
	}
	return sess.Email
}

func (a *Auth) record(action, subject string, err error) {
	recordActivity(a.journal, a.logger, action, subject, err)
}

func recordActivity(journal *store.Store, logger *zap.Logger, action, subject string, err error) {
	if journal == nil {
		return
	}
	act := store.Activity{Action: action, Subject: subject, Outcome: store.OutcomeOK}
	if err != nil {
		act.Outcome = store.OutcomeFailed
		act.Detail = err.Error()
	}
	if _, jerr := journal.RecordActivity(act); jerr != nil {
		logger.Warn("could not record activity", zap.String("action", action), zap.Error(jerr))
	}
}
