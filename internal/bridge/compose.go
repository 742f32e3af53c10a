package bridge

import (
	"strings"

	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/rs/zerolog"
)

const (
	// DefaultFeatureName replaces a blank name on plot requests.
	DefaultFeatureName = "Unnamed Point"
	// DefaultCenterZoom is the camera distance sent with every center request.
	DefaultCenterZoom = 10000.0
)

// Composer builds outbound envelopes. Coordinates are trusted as given;
// range checks belong to whoever collected them.
type Composer struct {
	IDs    FeatureIDSource
	Logger zerolog.Logger
}

func (c Composer) ids() FeatureIDSource {
	if c.IDs != nil {
		return c.IDs
	}
	return defaultIDs
}

// ComposeFeaturePlot builds a map.feature.plot envelope for a point feature.
func (c Composer) ComposeFeaturePlot(lat, lon float64, name string) protocol.Envelope {
	if strings.TrimSpace(name) == "" {
		name = DefaultFeatureName
	}
	plot := protocol.FeaturePlot{
		FeatureID: c.ids().NextFeatureID(),
		Name:      name,
		Format:    protocol.FormatGeoJSON,
		Feature:   protocol.PointFeature(protocol.GeoPoint{Lat: lat, Lon: lon}),
		Zoom:      true,
	}
	c.Logger.Debug().
		Str("channel", string(protocol.ChannelFeaturePlot)).
		Str("feature_id", plot.FeatureID).
		Float64("lat", lat).
		Float64("lon", lon).
		Str("name", name).
		Msg("compose feature plot")
	return protocol.MustEnvelope(protocol.ChannelFeaturePlot, plot)
}

// ComposeViewCenter builds a map.view.center.location envelope.
func (c Composer) ComposeViewCenter(lat, lon float64) protocol.Envelope {
	center := protocol.ViewCenter{
		Location: protocol.CenterLocation{Lat: lat, Lon: lon},
		Zoom:     DefaultCenterZoom,
	}
	c.Logger.Debug().
		Str("channel", string(protocol.ChannelViewCenterLocation)).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("compose view center")
	return protocol.MustEnvelope(protocol.ChannelViewCenterLocation, center)
}

// ComposeFeaturePlot uses a Composer with the process-wide id sequence and no
// logging.
func ComposeFeaturePlot(lat, lon float64, name string) protocol.Envelope {
	return Composer{Logger: zerolog.Nop()}.ComposeFeaturePlot(lat, lon, name)
}

func ComposeViewCenter(lat, lon float64) protocol.Envelope {
	return Composer{Logger: zerolog.Nop()}.ComposeViewCenter(lat, lon)
}
