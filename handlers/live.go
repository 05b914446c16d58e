// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/hub"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
)

// pingTopic keeps keep-alive replies from displacing queued results
const pingTopic = "\x00ping"

type LiveHandler struct {
	hub *hub.Hub
	cfg cliparse.Config
}

func NewLiveHandler(h *hub.Hub, cfg cliparse.Config) *LiveHandler {
	return &LiveHandler{hub: h, cfg: cfg}
}

// Subscribe handles GET /ws/polls/{room}
// The room is a poll ID or "all". Every text frame from the client is
// answered with a ping message; vote updates arrive as they happen.
func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	if room != hub.AllRoom {
		if _, err := uuid.Parse(room); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "room must be a poll ID or \"all\"")
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.WSOrigins,
	})
	if err != nil {
		// Accept has already written the HTTP error
		slog.Warn("websocket upgrade failed", "error", err, "room", room)
		return
	}

	sub := hub.NewConnSubscriber(conn, h.hub, room, h.cfg.BroadcastSendTimeout, slog.Default())
	h.hub.Subscribe(sub, room)
	slog.Info("live client connected", "room", room, "remote", middleware.GetClientIP(r))

	defer func() {
		h.hub.Unsubscribe(sub, room)
		sub.Close()
		<-sub.Done()
		slog.Info("live client disconnected", "room", room)
	}()

	ctx := r.Context()
	for {
		typ, _, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		ping := models.PingMessage{Type: models.MessagePing, Message: "connected", Room: room}
		if err := sub.Send(ctx, hub.Message{Topic: pingTopic, Payload: ping}); err != nil {
			return
		}
	}
}
