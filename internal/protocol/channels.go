package protocol

import "sort"

type Channel string

const (
	ChannelFeaturePlot        Channel = "map.feature.plot"
	ChannelViewCenterLocation Channel = "map.view.center.location"
	ChannelViewClicked        Channel = "map.view.clicked"
	ChannelStatusView         Channel = "map.status.view"
	ChannelMessageComplete    Channel = "map.message.complete"
)

type Direction int

const (
	HostToSurface Direction = iota + 1
	SurfaceToHost
	Both
)

func (d Direction) String() string {
	switch d {
	case HostToSurface:
		return "host_to_surface"
	case SurfaceToHost:
		return "surface_to_host"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Descriptor is the static metadata the registry keeps for a channel.
type Descriptor struct {
	Channel   Channel   `json:"channel"`
	Direction Direction `json:"direction"`
	Shape     string    `json:"shape"`
	Summary   string    `json:"summary"`
}

// Outbound reports whether the host may send on the channel.
func (d Descriptor) Outbound() bool {
	return d.Direction == HostToSurface || d.Direction == Both
}

// Inbound reports whether the map surface may send on the channel.
func (d Descriptor) Inbound() bool {
	return d.Direction == SurfaceToHost || d.Direction == Both
}

var registry = map[Channel]Descriptor{
	ChannelFeaturePlot: {
		Channel:   ChannelFeaturePlot,
		Direction: HostToSurface,
		Shape:     `{featureId, name, format:"geojson", feature:GeoJSON, zoom:bool}`,
		Summary:   "place a feature on the map",
	},
	ChannelViewCenterLocation: {
		Channel:   ChannelViewCenterLocation,
		Direction: HostToSurface,
		Shape:     `{location:{lat,lon}, zoom:float}`,
		Summary:   "fly camera to a point",
	},
	ChannelViewClicked: {
		Channel:   ChannelViewClicked,
		Direction: SurfaceToHost,
		Shape:     `{lat:float, lon:float}`,
		Summary:   "user clicked the map",
	},
	ChannelStatusView: {
		Channel:   ChannelStatusView,
		Direction: SurfaceToHost,
		Shape:     "opaque JSON (camera/bounds)",
		Summary:   "camera state changed",
	},
	ChannelMessageComplete: {
		Channel:   ChannelMessageComplete,
		Direction: SurfaceToHost,
		Shape:     `{status:string, details:{featureId?:string, ...}}`,
		Summary:   "async operation result",
	},
}

// Describe looks up a channel in the registry.
func Describe(ch Channel) (Descriptor, bool) {
	d, ok := registry[ch]
	return d, ok
}

// Channels returns every registered descriptor sorted by channel name.
func Channels() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}
