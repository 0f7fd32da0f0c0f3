// Package dispatch maps a parsed IRC line to a domain event per the command
// table Twitch's chat protocol uses:
//
//	PING                                -> PONG reply (fire-and-forget)
//	376 (end of MOTD)                   -> Login
//	JOIN / PART                         -> JoinChannel / LeaveChannel
//	PRIVMSG / USERNOTICE                -> MessageReceived
//	ROOMSTATE / USERSTATE / GLOBALUSERSTATE -> RoomStateChanged
//	NOTICE, CLEARCHAT, CLEARMSG,
//	HOSTTARGET, RECONNECT               -> reserved, no-op
//	anything else                       -> ignored
//
// Dispatch is otherwise pure: its only side effect is a single injected
// sendRaw call for the PONG reply; it returns no error and owns no I/O in
// its own right.
package dispatch

import (
	"strings"

	"github.com/haldoran/twitchirc/internal/parser"
)

// ChatMessage is the normalized payload of a MessageReceived event, built
// from a PRIVMSG or USERNOTICE line. Unknown tags are preserved verbatim.
type ChatMessage struct {
	Command  string // "PRIVMSG" or "USERNOTICE"
	Channel  string
	Trailing string
	Tags     map[string]string
	Prefix   string
}

// Sink receives the domain events a dispatched line can produce. All
// delivery is synchronous on the caller's goroutine (the receive pump);
// implementations must not block.
type Sink interface {
	Login()
	JoinChannel(channel string)
	LeaveChannel(channel string)
	RoomStateChanged(channel string)
	MessageReceived(msg ChatMessage)
}

// Dispatcher routes ParsedLine values to a Sink.
type Dispatcher struct {
	sink    Sink
	sendRaw func(line string)
}

// New builds a Dispatcher. sendRaw is invoked for PING's PONG reply, the
// only outbound traffic the dispatcher originates itself; everything else
// routes through the Sink for the facade to act on.
func New(sink Sink, sendRaw func(line string)) *Dispatcher {
	return &Dispatcher{sink: sink, sendRaw: sendRaw}
}

// Dispatch routes a single parsed line per the command table. It never
// returns an error: an unrecognized command is silently ignored per spec,
// and a recognized command with an unexpected shape (e.g. PRIVMSG with no
// channel) degrades to an event carrying empty fields rather than failing --
// there is nothing actionable a caller could do with a dispatch error that
// parsing didn't already catch.
func (d *Dispatcher) Dispatch(line parser.ParsedLine) {
	switch line.Command {
	case "PING":
		if d.sendRaw != nil {
			d.sendRaw("PONG :" + line.Trailing)
		}
	case "376":
		d.sink.Login()
	case "JOIN":
		d.sink.JoinChannel(stripHash(line.Channel))
	case "PART":
		d.sink.LeaveChannel(stripHash(line.Channel))
	case "PRIVMSG", "USERNOTICE":
		d.sink.MessageReceived(ChatMessage{
			Command:  line.Command,
			Channel:  stripHash(line.Channel),
			Trailing: line.Trailing,
			Tags:     line.Tags,
			Prefix:   line.Prefix,
		})
	case "ROOMSTATE", "USERSTATE", "GLOBALUSERSTATE":
		d.sink.RoomStateChanged(stripHash(line.Channel))
	case "NOTICE", "CLEARCHAT", "CLEARMSG", "HOSTTARGET", "RECONNECT":
		// Reserved hooks: no-op in the core.
	default:
		// Ignored.
	}
}

func stripHash(channel string) string {
	return strings.TrimPrefix(channel, "#")
}
