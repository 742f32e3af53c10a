package bridge

import (
	"encoding/json"

	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/rs/zerolog"
)

// Dispatcher turns inbound envelopes into host events. It holds no state
// beyond its logger.
type Dispatcher struct {
	Logger zerolog.Logger
}

// Dispatch routes env by channel. Missing or mistyped payload fields fall back
// to zero values; the only error is an envelope without a channel.
func (d Dispatcher) Dispatch(env protocol.Envelope) ([]HostEvent, error) {
	ch := env.Channel()
	if ch == "" {
		return nil, protocol.ErrEmptyChannel
	}

	desc, ok := protocol.Describe(ch)
	if !ok {
		d.Logger.Warn().Str("channel", string(ch)).Msg("dispatch unknown channel")
		return nil, nil
	}

	switch ch {
	case protocol.ChannelViewClicked:
		obj := payloadObject(env)
		ev := ClickEvent{Lat: numberField(obj, "lat"), Lon: numberField(obj, "lon")}
		d.Logger.Debug().Str("channel", string(ch)).Float64("lat", ev.Lat).Float64("lon", ev.Lon).Msg("map clicked")
		return []HostEvent{ev}, nil

	case protocol.ChannelStatusView:
		ev := ViewStatusEvent{JSON: string(env.Payload())}
		d.Logger.Debug().Str("channel", string(ch)).Int("bytes", len(ev.JSON)).Msg("view changed")
		return []HostEvent{ev}, nil

	case protocol.ChannelMessageComplete:
		obj := payloadObject(env)
		status, _ := stringField(obj, "status")
		details := objectField(obj, "details")
		featureID, found := stringField(details, "featureId")
		if !found {
			d.Logger.Debug().Str("channel", string(ch)).Str("status", status).Msg("operation completed without feature id")
			return nil, nil
		}
		d.Logger.Debug().Str("channel", string(ch)).Str("status", status).Str("feature_id", featureID).Msg("operation completed")
		return []HostEvent{CompletionEvent{FeatureID: featureID, Status: status}}, nil

	default:
		d.Logger.Debug().Str("channel", string(ch)).Stringer("direction", desc.Direction).Msg("dispatch ignored channel")
		return nil, nil
	}
}

func payloadObject(env protocol.Envelope) map[string]json.RawMessage {
	var obj map[string]json.RawMessage
	if err := env.Decode(&obj); err != nil || obj == nil {
		return map[string]json.RawMessage{}
	}
	return obj
}

func objectField(obj map[string]json.RawMessage, key string) map[string]json.RawMessage {
	var out map[string]json.RawMessage
	raw, ok := obj[key]
	if !ok {
		return map[string]json.RawMessage{}
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]json.RawMessage{}
	}
	return out
}

func numberField(obj map[string]json.RawMessage, key string) float64 {
	var v float64
	raw, ok := obj[key]
	if !ok {
		return 0
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v
}

// stringField reports whether key is present. A present value that is not a
// JSON string reads as "".
func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	var v string
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", true
	}
	return v, true
}
