package ws

import (
	"fmt"
	"math"
	"strings"

	"github.com/muratmustafa/cmap/internal/bridge"
	"github.com/muratmustafa/cmap/internal/protocol"
)

// runAction performs a panel action against the bridge. Coordinates are
// clamped to the valid range first; the composer does not check them.
func runAction(b Bridge, action protocol.ActionPayload) (protocol.ActionAckPayload, error) {
	lat := clamp(action.Lat, -90, 90)
	lon := clamp(action.Lon, -180, 180)

	switch action.Action {
	case protocol.ActionPlot:
		name := action.Name
		if strings.TrimSpace(name) == "" {
			name = bridge.DefaultFeatureName
		}
		featureID, err := b.PlotFeature(lat, lon, name)
		if err != nil {
			return protocol.ActionAckPayload{}, err
		}
		return protocol.ActionAckPayload{
			Success:   true,
			Message:   fmt.Sprintf("point added: %q (%.4f, %.4f)", name, lat, lon),
			FeatureID: featureID,
		}, nil
	case protocol.ActionCenter:
		if err := b.CenterView(lat, lon); err != nil {
			return protocol.ActionAckPayload{}, err
		}
		return protocol.ActionAckPayload{
			Success: true,
			Message: fmt.Sprintf("flying to (%.4f, %.4f)", lat, lon),
		}, nil
	default:
		return protocol.ActionAckPayload{}, fmt.Errorf("unknown action %q", action.Action)
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
