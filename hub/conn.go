// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// MaxPendingTopics bounds the per-connection backlog. A client that falls
// this far behind is dropped.
const MaxPendingTopics = 1024

var (
	ErrSubscriberClosed = errors.New("subscriber closed")
	ErrSlowSubscriber   = errors.New("subscriber backlog full")
)

// ConnSubscriber delivers hub messages to a websocket connection. Send
// never blocks: messages queue per topic and a newer message replaces an
// unsent one with the same topic. A single writer goroutine drains the
// queue in first-queued order.
type ConnSubscriber struct {
	conn         *websocket.Conn
	hub          *Hub
	room         string
	writeTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	pending map[string]any
	order   []string
	closed  bool

	notify    chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewConnSubscriber starts the writer for conn. On a failed write the
// subscriber removes itself from room and closes the connection.
func NewConnSubscriber(conn *websocket.Conn, h *Hub, room string, writeTimeout time.Duration, logger *slog.Logger) *ConnSubscriber {
	if writeTimeout <= 0 {
		writeTimeout = DefaultSendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &ConnSubscriber{
		conn:         conn,
		hub:          h,
		room:         room,
		writeTimeout: writeTimeout,
		logger:       logger,
		pending:      make(map[string]any),
		notify:       make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *ConnSubscriber) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrSubscriberClosed
	}
	if _, queued := c.pending[msg.Topic]; !queued {
		if len(c.order) >= MaxPendingTopics {
			c.mu.Unlock()
			return ErrSlowSubscriber
		}
		c.order = append(c.order, msg.Topic)
	}
	c.pending[msg.Topic] = msg.Payload
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// next pops the oldest queued payload
func (c *ConnSubscriber) next() (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.order) == 0 {
		return nil, false
	}
	topic := c.order[0]
	c.order = c.order[1:]
	payload := c.pending[topic]
	delete(c.pending, topic)
	return payload, true
}

func (c *ConnSubscriber) writeLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case <-c.notify:
		}

		for {
			payload, ok := c.next()
			if !ok {
				break
			}
			ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
			err := wsjson.Write(ctx, c.conn, payload)
			cancel()
			if err != nil {
				c.logger.Debug("websocket write failed", "room", c.room, "error", err)
				if c.hub != nil {
					c.hub.Unsubscribe(c, c.room)
				}
				c.Close()
				return
			}
		}
	}
}

// Close stops the writer and closes the connection. Safe to call more
// than once and from any goroutine.
func (c *ConnSubscriber) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.pending = make(map[string]any)
		c.order = nil
		c.mu.Unlock()

		close(c.stop)
		c.conn.CloseNow()
	})
}

// Done is closed once the writer goroutine has exited
func (c *ConnSubscriber) Done() <-chan struct{} {
	return c.done
}
