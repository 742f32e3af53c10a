package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/muratmustafa/cmap/internal/bridge"
	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/rs/zerolog"
)

const publishTimeout = 2 * time.Second

// Publisher is a bridge.EventSink that hands every host event to a Store.
// Publish failures are logged and dropped.
type Publisher struct {
	Store  Store
	Logger zerolog.Logger
}

func (p Publisher) Emit(ev bridge.HostEvent) {
	data, err := EncodeEvent(ev)
	if err != nil {
		p.Logger.Warn().Err(err).Str("kind", ev.Kind()).Msg("encode host event failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.Store.PublishEvent(ctx, data); err != nil {
		p.Logger.Warn().Err(err).Str("kind", ev.Kind()).Msg("publish host event failed")
	}
}

// EncodeEvent renders ev as {"kind": ..., "event": {...}}.
func EncodeEvent(ev bridge.HostEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(protocol.EventPayload{Kind: ev.Kind(), Event: body})
}
