package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/jason-s-yu/showtime/engine"
	"github.com/jason-s-yu/showtime/internal/game"
	"github.com/jason-s-yu/showtime/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 5 * time.Second

// frame is one inbound websocket command.
type frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

type StreamHandler struct {
	tables Tables
	hub    *Hub
	accept *websocket.AcceptOptions
}

// NewStreamHandler serves table event streams. originPatterns lists the
// hosts allowed to open cross-origin connections.
func NewStreamHandler(tables Tables, hub *Hub, originPatterns []string) *StreamHandler {
	return &StreamHandler{
		tables: tables,
		hub:    hub,
		accept: &websocket.AcceptOptions{OriginPatterns: originPatterns},
	}
}

// Stream upgrades to a websocket that carries the caller's table events out
// and their gameplay commands in.
func (h *StreamHandler) Stream(c *gin.Context) {
	tableID, who := c.Param("id"), identity(c)
	if _, err := h.tables.Summary(tableID); err != nil {
		respondError(c, err)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, h.accept)
	if err != nil {
		log.WithError(err).WithField("table", tableID).Debug("websocket accept")
		return
	}
	defer conn.CloseNow()

	sub := h.hub.register(tableID, who.ID)
	defer h.hub.unregister(sub)
	logger := log.WithFields(log.Fields{"table": tableID, "player": who.ID})
	logger.Debug("subscriber connected")

	// Registered first, so nothing emitted after this snapshot is missed.
	h.sync(sub, tableID, who.ID)

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error { return h.writeLoop(ctx, conn, sub) })
	g.Go(func() error { return h.readLoop(ctx, conn, sub, who) })
	if err := g.Wait(); err != nil && websocket.CloseStatus(err) == -1 && !errors.Is(err, errTableGone) {
		logger.WithError(err).Debug("stream ended")
	}
}

var (
	errTableGone = errors.New("table deleted")
	errTooSlow   = errors.New("subscriber too slow")
)

func (h *StreamHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *subscriber) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.slow:
			conn.Close(websocket.StatusPolicyViolation, "too slow, reconnect to resync")
			return errTooSlow
		case ev := <-sub.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				return err
			}
			if ev.Type == game.EventTableDeleted {
				conn.Close(websocket.StatusNormalClosure, "table deleted")
				return errTableGone
			}
		}
	}
}

func (h *StreamHandler) readLoop(ctx context.Context, conn *websocket.Conn, sub *subscriber, who models.Identity) error {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}
		if err := h.dispatch(sub, who, f); err != nil {
			sub.deliver(errorEvent(sub.tableID, f.Type, err))
		}
	}
}

// dispatch runs one command. Results reach the caller as table events.
func (h *StreamHandler) dispatch(sub *subscriber, who models.Identity, f frame) error {
	tableID := sub.tableID
	switch f.Type {
	case "draw":
		fromDiscard, _ := f.Payload["fromDiscard"].(bool)
		if src, _ := f.Payload["source"].(string); src == "discard" {
			fromDiscard = true
		}
		_, err := h.tables.Draw(tableID, who.ID, fromDiscard)
		return err
	case "resolve":
		res, err := game.ParseResolution(f.Payload)
		if err != nil {
			return err
		}
		return h.tables.Resolve(tableID, who.ID, res)
	case "power":
		req, err := game.ParsePowerRequest(f.Payload)
		if err != nil {
			return err
		}
		_, err = h.tables.UsePower(tableID, who.ID, req)
		return err
	case "end_turn":
		return h.tables.EndTurn(tableID, who.ID)
	case "call":
		_, err := h.tables.Call(tableID, who.ID)
		return err
	case "ready":
		ready, ok := f.Payload["ready"].(bool)
		return h.tables.SetReady(tableID, who.ID, ready || !ok)
	case "sync":
		h.sync(sub, tableID, who.ID)
		return nil
	default:
		return &engine.Error{Kind: engine.KindInvalidArgument, Message: "unknown command " + f.Type}
	}
}

func (h *StreamHandler) sync(sub *subscriber, tableID, viewerID string) {
	ev, err := h.tables.Sync(tableID, viewerID)
	if err != nil {
		sub.deliver(errorEvent(tableID, "sync", err))
		return
	}
	sub.deliver(ev)
}

func errorEvent(tableID, command string, err error) game.Event {
	payload := map[string]any{"message": err.Error(), "command": command}
	if kind := engine.KindOf(err); kind != "" {
		payload["kind"] = kind
	}
	return game.Event{Type: game.EventError, TableID: tableID, Payload: payload}
}
