package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

var emptyObject = json.RawMessage(`{}`)

// Envelope is one CMAPI message: a channel name and the JSON object carried on
// it. The zero value has no channel and is rejected by the dispatcher.
type Envelope struct {
	channel Channel
	payload json.RawMessage
}

type wireEnvelope struct {
	Channel Channel         `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope for ch. The payload may be any value that
// encodes to a JSON object; raw JSON ([]byte or json.RawMessage) is validated
// and compacted. A nil payload becomes an empty object.
func NewEnvelope(ch Channel, payload any) (Envelope, error) {
	if strings.TrimSpace(string(ch)) == "" {
		return Envelope{}, ErrEmptyChannel
	}
	raw, err := encodePayload(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{channel: ch, payload: raw}, nil
}

// MustEnvelope is NewEnvelope for hard-coded channels and payloads. It panics
// on error.
func MustEnvelope(ch Channel, payload any) Envelope {
	env, err := NewEnvelope(ch, payload)
	if err != nil {
		panic(fmt.Sprintf("protocol: build %q envelope: %v", ch, err))
	}
	return env
}

// ParseEnvelope decodes the compact JSON text form produced by MarshalJSON.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (e Envelope) Channel() Channel {
	return e.channel
}

// Payload returns a copy of the compact payload JSON.
func (e Envelope) Payload() json.RawMessage {
	if e.payload == nil {
		return append(json.RawMessage(nil), emptyObject...)
	}
	return append(json.RawMessage(nil), e.payload...)
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload(), v)
}

func (e Envelope) String() string {
	return fmt.Sprintf("%s %s", e.channel, e.Payload())
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.channel == "" {
		return nil, ErrEmptyChannel
	}
	return json.Marshal(wireEnvelope{Channel: e.channel, Payload: e.Payload()})
}

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if strings.TrimSpace(string(w.Channel)) == "" {
		return ErrEmptyChannel
	}
	raw, err := encodePayload(w.Payload)
	if err != nil {
		return err
	}
	e.channel = w.Channel
	e.payload = raw
	return nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	var raw []byte
	switch v := payload.(type) {
	case nil:
		return append(json.RawMessage(nil), emptyObject...), nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		raw = b
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return append(json.RawMessage(nil), emptyObject...), nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidPayload)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	// json.Marshal escapes HTML characters inside raw messages; store the
	// escaped form so a marshal/unmarshal round trip is byte-identical.
	var escaped bytes.Buffer
	json.HTMLEscape(&escaped, compact.Bytes())
	return json.RawMessage(escaped.Bytes()), nil
}
