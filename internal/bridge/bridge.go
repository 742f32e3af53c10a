package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/rs/zerolog"
)

var (
	ErrNilTransport = errors.New("bridge: transport is required")
	ErrNilSink      = errors.New("bridge: event sink is required")
)

// Transport delivers envelopes to the map surface.
type Transport interface {
	Send(env protocol.Envelope) error
}

// Bridge joins a transport, an event sink and the CMAPI routing core. It keeps
// no per-message state; the same value serves every inbound and outbound call.
type Bridge struct {
	transport  Transport
	sink       EventSink
	logger     zerolog.Logger
	dispatcher Dispatcher
	composer   Composer
}

type Option func(*Bridge)

func WithLogger(logger zerolog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

func WithFeatureIDs(ids FeatureIDSource) Option {
	return func(b *Bridge) { b.composer.IDs = ids }
}

func New(transport Transport, sink EventSink, opts ...Option) (*Bridge, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	b := &Bridge{
		transport: transport,
		sink:      sink,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().Str("component", "bridge").Logger()
	b.dispatcher = Dispatcher{Logger: b.logger}
	b.composer.Logger = b.logger
	return b, nil
}

// Receive handles one message from the map surface. Errors describe a broken
// frame (no channel, payload not a JSON object) and are the transport's to
// report; payload contents never produce an error.
func (b *Bridge) Receive(channel string, payload json.RawMessage) error {
	env, err := protocol.NewEnvelope(protocol.Channel(channel), payload)
	if err != nil {
		return fmt.Errorf("receive %q: %w", channel, err)
	}
	return b.ReceiveEnvelope(env)
}

func (b *Bridge) ReceiveEnvelope(env protocol.Envelope) error {
	events, err := b.dispatcher.Dispatch(env)
	if err != nil {
		return err
	}
	for _, ev := range events {
		b.sink.Emit(ev)
	}
	return nil
}

// PlotFeature places a point feature on the map and returns its feature id.
func (b *Bridge) PlotFeature(lat, lon float64, name string) (string, error) {
	env := b.composer.ComposeFeaturePlot(lat, lon, name)
	var plot protocol.FeaturePlot
	if err := env.Decode(&plot); err != nil {
		return "", fmt.Errorf("plot feature: %w", err)
	}
	if err := b.send(env); err != nil {
		return "", err
	}
	return plot.FeatureID, nil
}

// CenterView flies the map camera to lat/lon.
func (b *Bridge) CenterView(lat, lon float64) error {
	return b.send(b.composer.ComposeViewCenter(lat, lon))
}

// Send delivers a prebuilt envelope after checking the host may send on its
// channel.
func (b *Bridge) Send(env protocol.Envelope) error {
	return b.send(env)
}

func (b *Bridge) send(env protocol.Envelope) error {
	desc, ok := protocol.Describe(env.Channel())
	if !ok {
		return fmt.Errorf("send %q: %w", env.Channel(), protocol.ErrUnknownChannel)
	}
	if !desc.Outbound() {
		return fmt.Errorf("send %q: %w", env.Channel(), protocol.ErrWrongDirection)
	}
	if err := b.transport.Send(env); err != nil {
		b.logger.Warn().Err(err).Str("channel", string(env.Channel())).Msg("send to surface failed")
		return fmt.Errorf("send %q: %w", env.Channel(), err)
	}
	b.logger.Info().Str("channel", string(env.Channel())).Msg("sent to surface")
	return nil
}
