package twitchirc

import "errors"

// Sentinel errors returned by Client methods. Match them with errors.Is; the
// underlying cause (a dial or token-refresh failure) is included in the
// error text only, not wrapped.
var (
	// ErrNotStarted is returned by SendMessage when no scheduler is running:
	// before login (end of MOTD) has completed, or after a disconnect.
	ErrNotStarted = errors.New("twitchirc: client not started")

	// ErrAlreadyStarted is returned by Start when called on a Client that is
	// already running.
	ErrAlreadyStarted = errors.New("twitchirc: client already started")

	// ErrAuth wraps a failure returned by the configured Auth collaborator
	// (missing tokens, or a RefreshTokens error) during Start.
	ErrAuth = errors.New("twitchirc: authentication failed")

	// ErrTransport wraps a failure returned by the configured Transport
	// collaborator's Connect.
	ErrTransport = errors.New("twitchirc: transport failed")

	// ErrCancelled is returned by Start when ctx is cancelled while
	// RefreshTokens or Connect is still in flight, taking priority over
	// ErrAuth/ErrTransport so callers can distinguish "the caller gave up"
	// from "the collaborator failed".
	ErrCancelled = errors.New("twitchirc: start cancelled")
)
