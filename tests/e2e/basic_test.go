package e2e_test

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

// fakeIRCServer speaks just enough of Twitch's IRC-over-WebSocket handshake
// to drive a real twitchirc.Client end to end over a real network socket:
// it waits for NICK, replies with 376, then answers any PRIVMSG it receives
// with a fixed incoming chat line from another user.
type fakeIRCServer struct {
	mu   sync.Mutex
	seen []string
}

func (s *fakeIRCServer) handler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sawNick := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		line := string(data)

		s.mu.Lock()
		s.seen = append(s.seen, line)
		s.mu.Unlock()

		if strings.HasPrefix(line, "NICK ") {
			sawNick = true
			conn.WriteMessage(websocket.TextMessage, []byte(":tmi.twitch.tv 376 realeris :>"))
			continue
		}
		if sawNick && strings.Contains(line, "PRIVMSG") {
			conn.WriteMessage(websocket.TextMessage,
				[]byte(":viewer!viewer@viewer.tmi.twitch.tv PRIVMSG #somechannel :thanks!"))
		}
	}
}

type staticAuth struct{}

func (staticAuth) HasTokens() bool                  { return true }
func (staticAuth) TokenIsValid() bool                { return true }
func (staticAuth) AccessToken() string               { return "faketoken" }
func (staticAuth) LoggedInUser() string              { return "realeris" }
func (staticAuth) RefreshTokens(context.Context) error { return nil }
func (staticAuth) OnCredentialsChanged(func())        {}

type staticRegistry struct{ channels []string }

func (r staticRegistry) GetAllActiveLoginNames() []string       { return r.channels }
func (staticRegistry) OnChannelsUpdated(func(twitchirc.ChannelUpdate)) {}
func (staticRegistry) IsModerator(string) bool                  { return false }

func TestClientLoginJoinSendReceive(t *testing.T) {
	t.Parallel()

	fake := &fakeIRCServer{}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := twitchirc.New(twitchirc.Config{
		Transport: transport.New(),
		Auth:      staticAuth{},
		Channels:  staticRegistry{channels: []string{"somechannel"}},
		ServerURL: url,
	})

	received := make(chan twitchirc.ChatMessage, 1)
	client.OnMessageReceived(func(msg twitchirc.ChatMessage) { received <- msg })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop(context.Background())

	// Wait for login to complete and a scheduler to be running before
	// sending, mirroring how a real caller would react to OnLogin.
	loggedIn := make(chan struct{})
	client.OnLogin(func() { close(loggedIn) })
	select {
	case <-loggedIn:
	case <-time.After(5 * time.Second):
		t.Fatal("never received 376/Login")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := client.SendMessage(ctx, "somechannel", "hello chat"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("SendMessage never became available after login")
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case msg := <-received:
		if msg.Channel != "somechannel" || msg.Trailing != "thanks!" {
			t.Errorf("got %+v, want channel=somechannel trailing=thanks!", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("never received the server's reply PRIVMSG")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	var sawJoin, sawPrivmsg bool
	for _, line := range fake.seen {
		if line == "JOIN #somechannel" {
			sawJoin = true
		}
		if strings.Contains(line, "PRIVMSG #somechannel :hello chat") {
			sawPrivmsg = true
		}
	}
	if !sawJoin {
		t.Error("server never saw a JOIN for somechannel")
	}
	if !sawPrivmsg {
		t.Error("server never saw the outbound PRIVMSG")
	}
}
