// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielhkuo/livepoll/models"
)

const (
	// AllRoom receives updates for every poll
	AllRoom = models.AllRoom

	DefaultSendTimeout = 5 * time.Second

	roomShards = 16
)

// Message is one published update. Topic identifies what the payload is
// about (a poll id for result updates) and lets subscribers coalesce.
type Message struct {
	Topic   string
	Payload any
}

// Subscriber receives messages from the hub. Send must respect ctx.
// Close must be idempotent.
type Subscriber interface {
	Send(ctx context.Context, msg Message) error
	Close()
}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]struct{}
}

type Config struct {
	SendTimeout time.Duration
	Logger      *slog.Logger
	Registerer  prometheus.Registerer
}

// Hub fans messages out to the subscribers of a room. Rooms are spread
// over independently locked shards.
type Hub struct {
	shards      [roomShards]*shard
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *hubMetrics
}

func New(cfg Config) *Hub {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Hub{
		sendTimeout: cfg.SendTimeout,
		logger:      cfg.Logger,
		metrics:     newHubMetrics(cfg.Registerer),
	}
	for i := range h.shards {
		h.shards[i] = &shard{rooms: make(map[string]map[Subscriber]struct{})}
	}
	return h
}

func (h *Hub) shard(room string) *shard {
	f := fnv.New32a()
	f.Write([]byte(room))
	return h.shards[f.Sum32()%roomShards]
}

// Subscribe adds sub to room. Subscribing twice is a no-op.
func (h *Hub) Subscribe(sub Subscriber, room string) {
	s := h.shard(room)
	s.mu.Lock()
	subs, ok := s.rooms[room]
	if !ok {
		subs = make(map[Subscriber]struct{})
		s.rooms[room] = subs
	}
	_, exists := subs[sub]
	subs[sub] = struct{}{}
	s.mu.Unlock()

	if !exists {
		h.metrics.subscribed(room)
		h.logger.Debug("subscriber joined", "room", room)
	}
}

// Unsubscribe removes sub from room and reports whether it was present.
// It does not close the subscriber.
func (h *Hub) Unsubscribe(sub Subscriber, room string) bool {
	s := h.shard(room)
	s.mu.Lock()
	subs, ok := s.rooms[room]
	if ok {
		_, ok = subs[sub]
		delete(subs, sub)
		if len(subs) == 0 {
			delete(s.rooms, room)
		}
	}
	s.mu.Unlock()

	if ok {
		h.metrics.unsubscribed(room)
		h.logger.Debug("subscriber left", "room", room)
	}
	return ok
}

// Publish delivers msg to every subscriber of room present when the call
// starts. Each send gets its own timeout. Subscribers whose send fails are
// removed and closed; the remaining ones still receive the message.
func (h *Hub) Publish(ctx context.Context, room string, msg Message) {
	s := h.shard(room)
	s.mu.RLock()
	subs := make([]Subscriber, 0, len(s.rooms[room]))
	for sub := range s.rooms[room] {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		if err := h.send(ctx, sub, msg); err != nil {
			if h.Unsubscribe(sub, room) {
				sub.Close()
			}
			h.metrics.deliveryError(room)
			h.logger.Debug("delivery failed, subscriber removed", "room", room, "error", err)
		}
	}
	h.metrics.published(room)
}

func (h *Hub) send(ctx context.Context, sub Subscriber, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber send panic: %v", r)
		}
	}()
	sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()
	return sub.Send(sendCtx, msg)
}

// SubscriberCount returns the number of subscribers currently in room
func (h *Hub) SubscriberCount(room string) int {
	s := h.shard(room)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[room])
}

// Stop removes and closes every subscriber. The hub stays usable.
func (h *Hub) Stop() {
	var closing []Subscriber
	for _, s := range h.shards {
		s.mu.Lock()
		for _, subs := range s.rooms {
			for sub := range subs {
				closing = append(closing, sub)
			}
		}
		s.rooms = make(map[string]map[Subscriber]struct{})
		s.mu.Unlock()
	}

	for _, sub := range closing {
		sub.Close()
	}
	h.metrics.reset()
	h.logger.Info("hub stopped", "closed_subscribers", len(closing))
}
