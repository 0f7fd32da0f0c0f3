package pump

import (
	"testing"

	"github.com/haldoran/twitchirc/internal/dispatch"
)

type recordingSink struct {
	logins   int
	joined   []string
	messages []dispatch.ChatMessage
}

func (r *recordingSink) Login()                         { r.logins++ }
func (r *recordingSink) JoinChannel(channel string)      { r.joined = append(r.joined, channel) }
func (r *recordingSink) LeaveChannel(string)             {}
func (r *recordingSink) RoomStateChanged(string)         {}
func (r *recordingSink) MessageReceived(msg dispatch.ChatMessage) {
	r.messages = append(r.messages, msg)
}

func TestHandleFrameMultipleLines(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := dispatch.New(sink, nil)
	p := New(d, nil)

	frame := ":tmi.twitch.tv 376 realeris :>\r\n:a!a@a JOIN #chan\r\nPING :tmi.twitch.tv\r\n"
	p.HandleFrame(frame)

	if sink.logins != 1 {
		t.Errorf("logins = %d, want 1", sink.logins)
	}
	if len(sink.joined) != 1 || sink.joined[0] != "chan" {
		t.Errorf("joined = %v, want [chan]", sink.joined)
	}
}

func TestHandleFrameSkipsInvalidLines(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := dispatch.New(sink, nil)
	p := New(d, nil)

	// Empty segments (from adjacent CRLFs) and an unparseable line (a prefix
	// with no command) must not panic or be dispatched.
	p.HandleFrame("\r\n\r\n:a!a@a\r\n:a!a@a PRIVMSG #chan :hi\r\n\r\n")

	if len(sink.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(sink.messages))
	}
}

func TestHandleFrameNoTrailingCRLF(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	d := dispatch.New(sink, nil)
	p := New(d, nil)

	p.HandleFrame("PING :tmi.twitch.tv")

	// No assertion needed beyond "did not panic"; PING has no sink effect
	// observable here since sendRaw is nil.
}
