package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/muratmustafa/cmap/internal/bridge"
	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/muratmustafa/cmap/internal/store"
	"github.com/rs/zerolog"
)

var ErrNoSurface = errors.New("ws: no map surface connected")

// Bridge is the part of bridge.Bridge the hub drives.
type Bridge interface {
	ReceiveEnvelope(env protocol.Envelope) error
	PlotFeature(lat, lon float64, name string) (string, error)
	CenterView(lat, lon float64) error
}

type Options struct {
	PanelAuthToken   string
	SurfaceAuthToken string
	AllowedOrigins   []string
	DedupeTTL        time.Duration
}

type clientConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *clientConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *clientConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub carries CMAPI frames to and from map surfaces and relays host events
// and actions to and from host panels. It is the bridge's Transport and one
// of its event sinks.
type Hub struct {
	store  store.Store
	opts   Options
	logger zerolog.Logger

	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool

	bridgeMu sync.RWMutex
	bridge   Bridge
	events   bridge.EventSink

	panelMu sync.RWMutex
	panels  map[*clientConn]struct{}

	surfaceMu sync.RWMutex
	surfaces  map[string]*clientConn
}

func NewHub(st store.Store, opts Options, logger zerolog.Logger) *Hub {
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = 24 * time.Hour
	}
	h := &Hub{
		store:          st,
		opts:           opts,
		logger:         logger.With().Str("component", "hub").Logger(),
		allowedOrigins: make(map[string]bool),
		panels:         make(map[*clientConn]struct{}),
		surfaces:       make(map[string]*clientConn),
	}
	for _, o := range opts.AllowedOrigins {
		h.allowedOrigins[o] = true
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// Attach wires the bridge that handles surface frames and panel actions, and
// the sink surface lifecycle events are reported to.
func (h *Hub) Attach(b Bridge, events bridge.EventSink) {
	h.bridgeMu.Lock()
	defer h.bridgeMu.Unlock()
	h.bridge = b
	h.events = events
}

func (h *Hub) attached() (Bridge, bridge.EventSink) {
	h.bridgeMu.RLock()
	defer h.bridgeMu.RUnlock()
	return h.bridge, h.events
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return h.allowedOrigins[origin]
}

func authorized(r *http.Request, token string) bool {
	return token == "" || r.Header.Get("Authorization") == "Bearer "+token
}

// Send delivers env to every connected map surface. It fails only when no
// surface took the frame.
func (h *Hub) Send(env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	h.surfaceMu.RLock()
	defer h.surfaceMu.RUnlock()
	if len(h.surfaces) == 0 {
		return ErrNoSurface
	}
	var lastErr error
	delivered := 0
	for id, surface := range h.surfaces {
		if err := surface.WriteText(data); err != nil {
			h.logger.Warn().Err(err).Str("surface_id", id).Str("channel", string(env.Channel())).Msg("send hub->surface failed")
			lastErr = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("send to %d surfaces: %w", len(h.surfaces), lastErr)
	}
	h.logger.Debug().Str("channel", string(env.Channel())).Int("surfaces", delivered).Msg("send hub->surface")
	return nil
}

// Emit forwards a host event to every panel.
func (h *Hub) Emit(ev bridge.HostEvent) {
	data, err := store.EncodeEvent(ev)
	if err != nil {
		h.logger.Warn().Err(err).Str("kind", ev.Kind()).Msg("encode host event failed")
		return
	}
	msg := protocol.HostMessage{
		MsgID:     uuid.New().String(),
		Type:      protocol.TypeEvent,
		Timestamp: time.Now().UnixMilli(),
		Payload:   data,
	}
	if s, ok := ev.(bridge.SurfaceEvent); ok {
		msg.SurfaceID = s.SurfaceID
	}
	h.broadcast(msg)
}

func (h *Hub) SurfaceCount() int {
	h.surfaceMu.RLock()
	defer h.surfaceMu.RUnlock()
	return len(h.surfaces)
}

func (h *Hub) PanelCount() int {
	h.panelMu.RLock()
	defer h.panelMu.RUnlock()
	return len(h.panels)
}

func (h *Hub) HandleSurface(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, h.opts.SurfaceAuthToken) {
		h.logger.Warn().Str("remote", r.RemoteAddr).Msg("surface unauthorized")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade surface ws failed")
		return
	}
	id := r.URL.Query().Get("surface_id")
	if id == "" {
		id = uuid.New().String()
	}
	client := &clientConn{id: id, conn: conn}

	h.surfaceMu.Lock()
	if old, ok := h.surfaces[id]; ok {
		_ = old.conn.Close()
	}
	h.surfaces[id] = client
	surfaceCount := len(h.surfaces)
	h.surfaceMu.Unlock()

	h.logger.Info().Str("surface_id", id).Str("remote", r.RemoteAddr).Int("active_surfaces", surfaceCount).Msg("surface connected")
	h.surfaceChanged(id, true)
	h.readSurface(client)
}

func (h *Hub) readSurface(client *clientConn) {
	defer func() {
		h.surfaceMu.Lock()
		removed := false
		if cur, ok := h.surfaces[client.id]; ok && cur == client {
			delete(h.surfaces, client.id)
			removed = true
		}
		surfaceCount := len(h.surfaces)
		h.surfaceMu.Unlock()
		_ = client.conn.Close()
		h.logger.Info().Str("surface_id", client.id).Int("active_surfaces", surfaceCount).Msg("surface disconnected")
		if removed {
			h.surfaceChanged(client.id, false)
		}
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("surface_id", client.id).Msg("recv surface->hub failed")
			}
			return
		}
		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			h.logger.Warn().Err(err).Str("surface_id", client.id).Msg("drop malformed surface frame")
			continue
		}
		h.logger.Debug().Str("surface_id", client.id).Str("channel", string(env.Channel())).Msg("recv surface->hub")
		b, _ := h.attached()
		if b == nil {
			h.logger.Warn().Str("channel", string(env.Channel())).Msg("no bridge attached, frame dropped")
			continue
		}
		if err := b.ReceiveEnvelope(env); err != nil {
			h.logger.Warn().Err(err).Str("surface_id", client.id).Msg("receive surface frame failed")
		}
	}
}

func (h *Hub) surfaceChanged(id string, connected bool) {
	_, events := h.attached()
	if events == nil {
		return
	}
	events.Emit(bridge.SurfaceEvent{SurfaceID: id, Connected: connected})
}

func (h *Hub) HandlePanel(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, h.opts.PanelAuthToken) {
		h.logger.Warn().Str("remote", r.RemoteAddr).Msg("panel unauthorized")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade panel ws failed")
		return
	}
	client := &clientConn{id: uuid.New().String(), conn: conn}

	h.panelMu.Lock()
	h.panels[client] = struct{}{}
	panelCount := len(h.panels)
	h.panelMu.Unlock()

	h.logger.Info().Str("remote", r.RemoteAddr).Int("active_panels", panelCount).Msg("panel connected")
	h.readPanel(client)
}

func (h *Hub) readPanel(client *clientConn) {
	defer func() {
		h.panelMu.Lock()
		delete(h.panels, client)
		panelCount := len(h.panels)
		h.panelMu.Unlock()
		_ = client.conn.Close()
		h.logger.Info().Int("active_panels", panelCount).Msg("panel disconnected")
	}()

	for {
		var msg protocol.HostMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("recv panel->hub failed")
			}
			return
		}
		h.logMessage("recv panel->hub", msg)
		if msg.Type != protocol.TypeAction {
			h.logger.Debug().Str("type", msg.Type).Str("msg_id", msg.MsgID).Msg("ignore non-action from panel")
			continue
		}
		if err := h.handleAction(context.Background(), msg); err != nil {
			h.logger.Warn().Err(err).Str("msg_id", msg.MsgID).Msg("handle action failed")
			h.broadcast(protocol.HostMessage{
				MsgID:     msg.MsgID,
				TraceID:   msg.TraceID,
				Type:      protocol.TypeError,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(protocol.ErrorPayload{Code: "ACTION_FAILED", Message: err.Error()}),
			})
		}
	}
}

func (h *Hub) handleAction(ctx context.Context, msg protocol.HostMessage) error {
	if msg.MsgID == "" {
		return errors.New("missing msg_id")
	}

	seen, err := h.store.IsProcessed(ctx, msg.MsgID)
	if err != nil {
		return err
	}
	if seen {
		h.ack(msg, protocol.ActionAckPayload{
			ActionMsgID: msg.MsgID,
			Success:     true,
			Message:     "duplicate ignored",
		})
		return nil
	}

	var action protocol.ActionPayload
	if err := json.Unmarshal(msg.Payload, &action); err != nil {
		return fmt.Errorf("decode action: %w", err)
	}
	b, _ := h.attached()
	if b == nil {
		return errors.New("no bridge attached")
	}

	ack, err := runAction(b, action)
	if err != nil {
		return err
	}
	ack.ActionMsgID = msg.MsgID
	if err := h.store.MarkProcessed(ctx, msg.MsgID, h.opts.DedupeTTL); err != nil {
		return err
	}
	h.ack(msg, ack)
	return nil
}

func (h *Hub) ack(msg protocol.HostMessage, ack protocol.ActionAckPayload) {
	out := protocol.HostMessage{
		MsgID:     msg.MsgID,
		TraceID:   msg.TraceID,
		Type:      protocol.TypeActionAck,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(ack),
	}
	h.logMessage("send hub->panel(action_ack)", out)
	h.broadcast(out)
}

func (h *Hub) broadcast(msg protocol.HostMessage) {
	h.panelMu.RLock()
	defer h.panelMu.RUnlock()
	h.logger.Debug().Int("count", len(h.panels)).Str("type", msg.Type).Str("msg_id", msg.MsgID).Msg("broadcast to panels")
	for panel := range h.panels {
		if err := panel.WriteJSON(msg); err != nil {
			h.logger.Warn().Err(err).Msg("broadcast to panel failed")
		}
	}
}

func (h *Hub) logMessage(prefix string, msg protocol.HostMessage) {
	h.logger.Debug().
		Str("type", msg.Type).
		Str("msg_id", msg.MsgID).
		Str("trace_id", msg.TraceID).
		Str("surface_id", msg.SurfaceID).
		Int64("timestamp", msg.Timestamp).
		Msg(prefix)
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
