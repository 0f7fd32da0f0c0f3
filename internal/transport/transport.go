// Package transport implements the default Transport (root package's
// Transport interface) over a gorilla/websocket connection: a write-pump
// goroutine with a 54s ping ticker and a read-pump goroutine that resets a
// 60s read deadline on every pong, carrying raw IRC text frames.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by SendInstant once the transport has been
// disconnected.
var ErrClosed = errors.New("transport: connection closed")

const (
	pingPeriod  = 54 * time.Second
	writeWait   = 10 * time.Second
	readWait    = 60 * time.Second
	sendBufSize = 256
)

// WS is the default Transport, a single IRC-over-WebSocket connection.
type WS struct {
	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool
	sendCh chan string

	onConnect    func()
	onDisconnect func()
	onMessage    func(frame string)

	cancel context.CancelFunc
}

// New builds an unconnected WS transport. Call Connect to dial.
func New() *WS {
	return &WS{}
}

func (w *WS) OnConnect(f func())            { w.onConnect = f }
func (w *WS) OnDisconnect(f func())         { w.onDisconnect = f }
func (w *WS) OnMessage(f func(frame string)) { w.onMessage = f }

// Connect dials url (expected to be a wss:// IRC endpoint such as
// wss://irc-ws.chat.twitch.tv:443) and starts the read and write pumps.
func (w *WS) Connect(ctx context.Context, url string) error {
	dialCtx, dialCancel := context.WithTimeout(ctx, 15*time.Second)
	defer dialCancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", url, err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	w.conn = conn
	w.closed = false
	w.sendCh = make(chan string, sendBufSize)
	w.cancel = cancel
	w.mu.Unlock()

	go w.writePump(pumpCtx)
	go w.readPump(pumpCtx)

	if w.onConnect != nil {
		w.onConnect()
	}
	return nil
}

// Disconnect closes the connection. reason is sent as the WebSocket close
// frame's informational text.
func (w *WS) Disconnect(_ context.Context, reason string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	cancel := w.cancel
	conn := w.conn
	sendCh := w.sendCh
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	}
	if sendCh != nil {
		close(sendCh)
	}
	return nil
}

// Send queues line for delivery without waiting for the result. Used for
// control frames (PONG, JOIN/PART) the facade issues directly.
func (w *WS) Send(line string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.sendCh <- line:
	default:
		// Send buffer full: drop rather than block the caller. A connection
		// this backed up is already failing its read/write deadlines.
	}
}

// SendInstant puts line on the write pump's buffered channel, blocking while
// the buffer is full or until ctx is cancelled. It returns nil once the line
// is queued; it does not wait for the socket write, and a later write error
// is not reported to the caller (the write pump disconnects instead).
func (w *WS) SendInstant(ctx context.Context, line string) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrClosed
	}
	ch := w.sendCh
	w.mu.RUnlock()

	select {
	case ch <- line:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WS) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	w.mu.RLock()
	conn := w.conn
	sendCh := w.sendCh
	w.mu.RUnlock()

	for {
		select {
		case line, ok := <-sendCh:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				w.handleDisconnect()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				w.handleDisconnect()
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (w *WS) readPump(ctx context.Context) {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			w.handleDisconnect()
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		if w.onMessage != nil {
			w.onMessage(string(data))
		}
	}
}

func (w *WS) handleDisconnect() {
	w.mu.Lock()
	alreadyClosed := w.closed
	w.closed = true
	w.mu.Unlock()

	if !alreadyClosed && w.onDisconnect != nil {
		w.onDisconnect()
	}
}
