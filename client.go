package twitchirc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/haldoran/twitchirc/internal/dispatch"
	"github.com/haldoran/twitchirc/internal/joinlimit"
	"github.com/haldoran/twitchirc/internal/pump"
	"github.com/haldoran/twitchirc/internal/queue"
	"github.com/haldoran/twitchirc/internal/scheduler"
)

// DefaultServerURL is Twitch's IRC-over-WebSocket endpoint.
const DefaultServerURL = "wss://irc-ws.chat.twitch.tv:443"

// Config wires a Client to its external collaborators: transport, auth, and
// channel registry are consumed, never owned.
type Config struct {
	Transport Transport
	Auth      Auth
	Channels  ChannelRegistry

	// ServerURL overrides DefaultServerURL. Tests substitute a local
	// ws:// or wss:// endpoint here.
	ServerURL string

	Logger *slog.Logger
}

// Client is the service facade: it owns the connection lifecycle, the
// per-connection send queue and scheduler, and the public event
// subscriptions. It implements dispatch.Sink internally to receive parsed
// protocol events from the pump.
type Client struct {
	cfg    Config
	logger *slog.Logger

	dispatcher *dispatch.Dispatcher
	pump       *pump.Pump
	joins      *joinlimit.Limiter

	eventsMu sync.Mutex
	events   events

	mu          sync.Mutex
	started     bool
	sendQueue   *queue.Queue
	sched       *scheduler.Scheduler
	schedCancel context.CancelFunc
}

// New constructs a Client over cfg. Transport, Auth, and Channels must be
// non-nil; ServerURL and Logger default to DefaultServerURL and
// slog.Default() respectively.
func New(cfg Config) *Client {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Client{
		cfg:    cfg,
		logger: cfg.Logger,
		joins:  joinlimit.New(),
	}
	c.dispatcher = dispatch.New(c, c.sendRawControl)
	c.pump = pump.New(c.dispatcher, c.logger)
	return c
}

// Start validates credentials (refreshing if needed), wires transport
// callbacks, and connects. It returns once the transport reports connected;
// login (CAP REQ/PASS/NICK) and the post-376 JOIN burst happen
// asynchronously as the server responds.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	if !c.cfg.Auth.HasTokens() {
		return ErrAuth
	}
	if !c.cfg.Auth.TokenIsValid() {
		if err := c.cfg.Auth.RefreshTokens(ctx); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			}
			return fmt.Errorf("%w: %v", ErrAuth, err)
		}
	}

	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	c.cfg.Transport.OnMessage(c.pump.HandleFrame)
	c.cfg.Transport.OnConnect(c.handleConnected)
	c.cfg.Transport.OnDisconnect(c.handleDisconnected)
	c.cfg.Channels.OnChannelsUpdated(c.handleChannelsUpdated)

	if err := c.cfg.Transport.Connect(ctx, c.cfg.ServerURL); err != nil {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return nil
}

// Stop disconnects the transport and tears down any in-flight scheduler.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.mu.Unlock()

	c.teardownScheduler()
	return c.cfg.Transport.Disconnect(ctx, "client stopping")
}

func (c *Client) handleConnected() {
	c.cfg.Transport.Send("CAP REQ :twitch.tv/tags twitch.tv/commands twitch.tv/membership")
	c.cfg.Transport.Send("PASS oauth:" + c.cfg.Auth.AccessToken())
	login := c.cfg.Auth.LoggedInUser()
	if login == "" {
		login = "."
	}
	c.cfg.Transport.Send("NICK " + login)
}

func (c *Client) handleDisconnected() {
	c.teardownScheduler()
}

// sendRawControl is the one side effect the dispatcher is permitted: it
// replies to server PING with PONG via the transport's fire-and-forget send.
func (c *Client) sendRawControl(line string) {
	c.cfg.Transport.Send(line)
}

func (c *Client) teardownScheduler() {
	c.mu.Lock()
	cancel := c.schedCancel
	c.sched = nil
	c.sendQueue = nil
	c.schedCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// --- dispatch.Sink ---

// Login is invoked by the dispatcher on end-of-MOTD (376). It starts a fresh
// queue and scheduler for this connection and issues the initial JOIN burst
// for every active channel, throttled through the join/part limiter.
func (c *Client) Login() {
	q := queue.New()
	classify := func(channel string) scheduler.RateClass {
		if c.cfg.Channels.IsModerator(channel) {
			return scheduler.Relaxed
		}
		return scheduler.Normal
	}
	sched := scheduler.New(q, classify, c.schedulerSend, c.logger)

	schedCtx, schedCancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.sendQueue = q
	c.sched = sched
	c.schedCancel = schedCancel
	c.mu.Unlock()

	go sched.Run(schedCtx)

	c.eventsMu.Lock()
	c.events.fireLogin()
	c.eventsMu.Unlock()

	go c.joinAllActiveChannels(schedCtx)
}

func (c *Client) joinAllActiveChannels(ctx context.Context) {
	for _, name := range c.cfg.Channels.GetAllActiveLoginNames() {
		if err := c.joins.Wait(ctx); err != nil {
			return
		}
		c.cfg.Transport.Send("JOIN #" + name)
	}
}

func (c *Client) handleChannelsUpdated(update ChannelUpdate) {
	go func() {
		ctx := context.Background()
		for _, name := range update.EnabledChannels {
			if err := c.joins.Wait(ctx); err != nil {
				return
			}
			c.cfg.Transport.Send("JOIN #" + name)
		}
		for _, name := range update.DisabledChannels {
			if err := c.joins.Wait(ctx); err != nil {
				return
			}
			c.cfg.Transport.Send("PART #" + name)
		}
	}()
}

func (c *Client) JoinChannel(channel string) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	c.events.fireJoinChannel(channel)
}

func (c *Client) LeaveChannel(channel string) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	c.events.fireLeaveChannel(channel)
}

func (c *Client) RoomStateChanged(channel string) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	c.events.fireRoomStateChanged(channel)
}

func (c *Client) MessageReceived(msg ChatMessage) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	c.events.fireMessageReceived(msg)
}

func (c *Client) schedulerSend(ctx context.Context, line string) error {
	return c.cfg.Transport.SendInstant(ctx, line)
}

// Snapshot reports the current outbound scheduler's queue depth and
// sliding-window occupancy. ok is false when no scheduler is running, i.e.
// before the first login or after a disconnect.
func (c *Client) Snapshot() (snap SchedulerSnapshot, ok bool) {
	c.mu.Lock()
	sched := c.sched
	c.mu.Unlock()
	if sched == nil {
		return SchedulerSnapshot{}, false
	}
	return sched.Snapshot(), true
}

// --- public subscriptions ---

func (c *Client) OnLogin(f func())                          { c.addEvent(func(e *events) { e.login = append(e.login, f) }) }
func (c *Client) OnJoinChannel(f func(channel string))       { c.addEvent(func(e *events) { e.joinChannel = append(e.joinChannel, f) }) }
func (c *Client) OnLeaveChannel(f func(channel string))      { c.addEvent(func(e *events) { e.leaveChannel = append(e.leaveChannel, f) }) }
func (c *Client) OnRoomStateChanged(f func(channel string))  { c.addEvent(func(e *events) { e.roomStateChanged = append(e.roomStateChanged, f) }) }
func (c *Client) OnMessageReceived(f func(msg ChatMessage))  { c.addEvent(func(e *events) { e.messageReceived = append(e.messageReceived, f) }) }

func (c *Client) addEvent(mutate func(*events)) {
	c.eventsMu.Lock()
	defer c.eventsMu.Unlock()
	mutate(&c.events)
}

// --- outbound chat ---

// SendMessage enqueues a PRIVMSG to channel for delivery by the rate-limit
// scheduler. It returns ErrNotStarted if the client has not completed login
// yet (no scheduler is running).
func (c *Client) SendMessage(_ context.Context, channel, text string) error {
	c.mu.Lock()
	q := c.sendQueue
	c.mu.Unlock()

	if q == nil {
		return ErrNotStarted
	}

	line := fmt.Sprintf("@id=%s PRIVMSG #%s :%s", uuid.New().String(), channel, text)
	q.Enqueue(queue.Message{Channel: channel, Line: line})
	return nil
}
