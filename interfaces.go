package twitchirc

import "context"

// Transport is the duplex text-stream collaborator the core consumes but
// does not own. A default gorilla/websocket-based implementation is
// available in internal/transport, but any implementation satisfying this
// interface works -- the facade never type-asserts down to a concrete type.
type Transport interface {
	// Connect opens the connection. Blocks until connected or ctx is
	// cancelled/errors.
	Connect(ctx context.Context, url string) error

	// Disconnect closes the connection with reason as an informational
	// string (not necessarily sent on the wire).
	Disconnect(ctx context.Context, reason string) error

	// Send is fire-and-forget: queued for delivery, errors (if any) are not
	// surfaced to the caller. Used for control frames (PONG, JOIN/PART) that
	// the facade issues directly, bypassing the scheduler.
	Send(line string)

	// SendInstant is awaitable and surfaces delivery errors. Used by the
	// rate-limit scheduler, which needs to know whether a send actually
	// succeeded.
	SendInstant(ctx context.Context, line string) error

	// OnConnect, OnDisconnect, and OnMessage register the transport's
	// lifecycle and inbound-frame callbacks. The facade calls each of these
	// exactly once during Start, before Connect.
	OnConnect(func())
	OnDisconnect(func())
	OnMessage(func(frame string))
}

// Auth is the token-acquisition collaborator the core consumes. The core
// never stores or refreshes a token itself -- it calls RefreshTokens when
// TokenIsValid reports false and aborts Start on error.
type Auth interface {
	HasTokens() bool
	TokenIsValid() bool
	AccessToken() string
	LoggedInUser() string
	RefreshTokens(ctx context.Context) error
	OnCredentialsChanged(func())
}

// ChannelUpdate describes a batch change in the set of channels the caller
// wants joined, delivered by ChannelRegistry.OnChannelsUpdated.
type ChannelUpdate struct {
	EnabledChannels  []string
	DisabledChannels []string
}

// ChannelRegistry is the channel-membership collaborator the core consumes.
// GetAllActiveLoginNames seeds the initial JOIN burst after login;
// OnChannelsUpdated drives incremental JOIN/PART while connected.
type ChannelRegistry interface {
	GetAllActiveLoginNames() []string
	OnChannelsUpdated(func(ChannelUpdate))

	// IsModerator reports whether the authenticated user holds moderator or
	// owner status in channel, which selects the Relaxed rate class.
	IsModerator(channel string) bool
}
