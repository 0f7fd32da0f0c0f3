// Package stress_test exercises the rate-limit scheduler at real timescale
// against a fake Twitch IRC server reachable over a real network socket,
// isolated into its own module so its half-minute-plus runtime never slows down
// `go test ./...` for the main module.
package stress_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haldoran/twitchirc"
	"github.com/haldoran/twitchirc/internal/transport"
)

type collectingIRCServer struct {
	mu        sync.Mutex
	privmsgAt []time.Time
}

func (s *collectingIRCServer) handler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		line := string(data)
		if strings.HasPrefix(line, "NICK ") {
			conn.WriteMessage(websocket.TextMessage, []byte(":tmi.twitch.tv 376 stressbot :>"))
			continue
		}
		if strings.Contains(line, "PRIVMSG") {
			s.mu.Lock()
			s.privmsgAt = append(s.privmsgAt, time.Now())
			s.mu.Unlock()
		}
	}
}

func (s *collectingIRCServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.privmsgAt)
}

func (s *collectingIRCServer) timestamps() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.privmsgAt))
	copy(out, s.privmsgAt)
	return out
}

type staticAuth struct{}

func (staticAuth) HasTokens() bool                     { return true }
func (staticAuth) TokenIsValid() bool                   { return true }
func (staticAuth) AccessToken() string                  { return "faketoken" }
func (staticAuth) LoggedInUser() string                 { return "stressbot" }
func (staticAuth) RefreshTokens(context.Context) error  { return nil }
func (staticAuth) OnCredentialsChanged(func())          {}

type staticRegistry struct{}

func (staticRegistry) GetAllActiveLoginNames() []string                { return nil }
func (staticRegistry) OnChannelsUpdated(func(twitchirc.ChannelUpdate)) {}
func (staticRegistry) IsModerator(string) bool                         { return false }

// TestBurstOfTwentyOneRespectsSlidingWindow exercises the scenario Twitch's
// published rate limits describe directly: a normal (non-moderator) sender
// issuing 21 chat messages back to back into a channel that allows only 20
// per rolling 32-second window must see the 21st message delayed until the
// window has rolled, while the first 20 ship inside the window, spaced only
// by the 1250ms per-channel minimum (the 20th at about 23.75s).
func TestBurstOfTwentyOneRespectsSlidingWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("runs at real rate-limit timescale (~32s); skipped in short mode")
	}
	t.Parallel()

	fake := &collectingIRCServer{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := twitchirc.New(twitchirc.Config{
		Transport: transport.New(),
		Auth:      staticAuth{},
		Channels:  staticRegistry{},
		ServerURL: url,
	})

	loggedIn := make(chan struct{})
	client.OnLogin(func() { close(loggedIn) })

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop(context.Background())

	select {
	case <-loggedIn:
	case <-time.After(5 * time.Second):
		t.Fatal("never received 376/Login")
	}

	start := time.Now()
	const burst = 21
	for i := 0; i < burst; i++ {
		for {
			if err := client.SendMessage(ctx, "stresschannel", "burst message"); err == nil {
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
	}

	deadline := time.Now().Add(40 * time.Second)
	for fake.count() < burst && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if got := fake.count(); got != burst {
		t.Fatalf("server saw %d PRIVMSGs, want %d", got, burst)
	}

	timestamps := fake.timestamps()
	twentieth := timestamps[19].Sub(start)
	if twentieth >= 32*time.Second {
		t.Errorf("20th send took %v from burst start, want well under the 32s window", twentieth)
	}

	twentyFirst := timestamps[20].Sub(start)
	if twentyFirst < 30*time.Second {
		t.Errorf("21st send arrived %v after burst start, want it held back for the window to roll (>=30s)", twentyFirst)
	}
}
