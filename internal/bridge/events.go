package bridge

// Event kinds as reported to host panels and event stores.
const (
	KindClick      = "click"
	KindViewStatus = "view_status"
	KindCompletion = "completion"
	KindSurface    = "surface"
)

// HostEvent is the closed set of events the bridge raises toward the host.
type HostEvent interface {
	Kind() string
	isHostEvent()
}

// ClickEvent reports a click on the map surface.
type ClickEvent struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ViewStatusEvent carries the surface's camera state verbatim as JSON text.
type ViewStatusEvent struct {
	JSON string `json:"json"`
}

// CompletionEvent correlates a completion report with a prior plot request.
type CompletionEvent struct {
	FeatureID string `json:"featureId"`
	Status    string `json:"status"`
}

// SurfaceEvent is raised by the transport when a map surface connects or
// goes away.
type SurfaceEvent struct {
	SurfaceID string `json:"surfaceId"`
	Connected bool   `json:"connected"`
}

func (ClickEvent) Kind() string      { return KindClick }
func (ViewStatusEvent) Kind() string { return KindViewStatus }
func (CompletionEvent) Kind() string { return KindCompletion }
func (SurfaceEvent) Kind() string    { return KindSurface }

func (ClickEvent) isHostEvent()      {}
func (ViewStatusEvent) isHostEvent() {}
func (CompletionEvent) isHostEvent() {}
func (SurfaceEvent) isHostEvent()    {}
