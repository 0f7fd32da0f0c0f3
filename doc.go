// Package twitchirc implements a Twitch-flavoured IRCv3 client runtime.
//
// It parses the IRCv3 tagged-message grammar Twitch uses over its chat
// WebSocket, dispatches parsed lines to registered event subscribers, and
// operates an outbound message pipeline that respects Twitch's sliding-window
// rate limits with per-channel minimum spacing. The package does not own a
// network connection, a token store, or a list of channels to join — those
// are supplied by the caller through the Transport, Auth, and ChannelRegistry
// interfaces (see interfaces.go), which keeps the core testable without a
// live Twitch connection and lets callers swap in their own transport, auth
// flow, or channel source.
//
// # Architecture
//
// Inbound frames flow transport -> receive pump -> line parser -> command
// dispatcher -> event subscribers. Outbound messages flow caller -> send
// queue -> rate-limit scheduler -> transport. The two pipelines share no
// state; the scheduler is the sole owner of the rate-limit bookkeeping, and
// producers only ever touch the send queue's mutex for the duration of an
// enqueue.
//
// # Quick Start
//
//	import "github.com/haldoran/twitchirc"
//
//	cfg := twitchirc.Config{
//	    Transport: myTransport, // satisfies twitchirc.Transport
//	    Auth:      myAuth,      // satisfies twitchirc.Auth
//	    Channels:  myRegistry,  // satisfies twitchirc.ChannelRegistry
//	}
//	client := twitchirc.New(cfg)
//
//	client.OnMessageReceived(func(msg twitchirc.ChatMessage) {
//	    log.Printf("#%s %s: %s", msg.Channel, msg.Prefix, msg.Trailing)
//	})
//
//	// SendMessage returns ErrNotStarted until login (end of MOTD) has
//	// completed, which happens after Start returns.
//	client.OnLogin(func() {
//	    client.SendMessage(ctx, "somechannel", "hello chat")
//	})
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(context.Background())
//
// # Rate Limiting
//
// Outbound chat is rate-limited per Twitch's published limits: 20 sends per
// rolling 32-second window for a normal user, 100 for a channel's broadcaster
// or moderator, plus a minimum per-channel spacing (1250ms normal, 50ms
// relaxed) enforced independently of the window. See internal/scheduler for
// the algorithm.
//
// # Non-goals
//
// No persistence, no retry of failed sends, no IRC features beyond what
// Twitch's chat service uses, no automatic reconnection (that belongs to the
// transport), and no tag-value escape decoding — callers see raw wire
// escapes (`\s`, `\r`, `\n`, `\:`, `\\`) in tag values.
package twitchirc
