package bridge

import "github.com/rs/zerolog"

// EventSink receives host events. Emit must not block the caller for long;
// the bridge calls it inline for every event.
type EventSink interface {
	Emit(ev HostEvent)
}

type EventSinkFunc func(ev HostEvent)

func (f EventSinkFunc) Emit(ev HostEvent) { f(ev) }

// MultiSink fans each event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ev HostEvent) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// LogSink writes one info line per event.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Emit(ev HostEvent) {
	e := s.Logger.Info().Str("kind", ev.Kind())
	switch v := ev.(type) {
	case ClickEvent:
		e = e.Float64("lat", v.Lat).Float64("lon", v.Lon)
	case ViewStatusEvent:
		e = e.Int("bytes", len(v.JSON))
	case CompletionEvent:
		e = e.Str("feature_id", v.FeatureID).Str("status", v.Status)
	case SurfaceEvent:
		e = e.Str("surface_id", v.SurfaceID).Bool("connected", v.Connected)
	}
	e.Msg("host event")
}
