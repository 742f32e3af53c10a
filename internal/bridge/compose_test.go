package bridge

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/muratmustafa/cmap/internal/testutil/testlog"
)

func decodePlot(t *testing.T, env protocol.Envelope) protocol.FeaturePlot {
	t.Helper()
	if env.Channel() != protocol.ChannelFeaturePlot {
		t.Fatalf("unexpected channel: %q", env.Channel())
	}
	var plot protocol.FeaturePlot
	if err := env.Decode(&plot); err != nil {
		t.Fatalf("decode plot: %v", err)
	}
	return plot
}

func TestComposeFeaturePlotAxisOrder(t *testing.T) {
	c := Composer{Logger: testlog.Start(t)}
	points := [][2]float64{
		{39.9334, 32.8597},
		{-90, -180},
		{90, 180},
		{0, 0},
		{-33.8688, 151.2093},
	}
	for _, p := range points {
		plot := decodePlot(t, c.ComposeFeaturePlot(p[0], p[1], "Test Point"))
		got := plot.Feature.Geometry.Coordinates
		if len(got) != 3 || got[0] != p[1] || got[1] != p[0] || got[2] != 0.0 {
			t.Fatalf("lat=%v lon=%v: unexpected coordinates %v", p[0], p[1], got)
		}
		if plot.Feature.Type != "Feature" || plot.Feature.Geometry.Type != "Point" {
			t.Fatalf("unexpected feature: %+v", plot.Feature)
		}
		if plot.Format != "geojson" || !plot.Zoom || plot.Name != "Test Point" {
			t.Fatalf("unexpected plot: %+v", plot)
		}
	}
}

func TestComposeFeaturePlotWireCoordinates(t *testing.T) {
	env := ComposeFeaturePlot(39.9334, 32.8597, "Ankara")
	var raw struct {
		Feature struct {
			Geometry struct {
				Coordinates []json.Number `json:"coordinates"`
			} `json:"geometry"`
		} `json:"feature"`
	}
	if err := env.Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	c := raw.Feature.Geometry.Coordinates
	if len(c) != 3 || c[0] != "32.8597" || c[1] != "39.9334" || c[2] != "0" {
		t.Fatalf("unexpected wire coordinates: %v", c)
	}
}

func TestComposeFeaturePlotBlankName(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		plot := decodePlot(t, ComposeFeaturePlot(39.9334, 32.8597, name))
		if plot.Name == "" || plot.Name != DefaultFeatureName {
			t.Fatalf("name %q: unexpected fallback %q", name, plot.Name)
		}
	}
}

func TestComposeFeaturePlotUniqueIDs(t *testing.T) {
	frozen := time.UnixMilli(1700000000000)
	c := Composer{IDs: &SequenceIDs{Now: func() time.Time { return frozen }}}
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		plot := decodePlot(t, c.ComposeFeaturePlot(1, 2, "p"))
		if i == 0 && plot.FeatureID != "qt-point-1700000000000-1" {
			t.Fatalf("unexpected first feature id %q", plot.FeatureID)
		}
		if plot.FeatureID == "" {
			t.Fatalf("empty feature id")
		}
		if seen[plot.FeatureID] {
			t.Fatalf("duplicate feature id %q", plot.FeatureID)
		}
		seen[plot.FeatureID] = true
	}
}

func TestSequenceIDsConcurrent(t *testing.T) {
	ids := &SequenceIDs{Prefix: "qt-point"}
	const workers, per = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := ids.NextFeatureID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Fatalf("expected %d unique ids, got %d", workers*per, len(seen))
	}
	for id := range seen {
		if !strings.HasPrefix(id, "qt-point-") {
			t.Fatalf("unexpected id format: %q", id)
		}
	}
}

func TestDefaultComposerIDsDistinct(t *testing.T) {
	a := decodePlot(t, ComposeFeaturePlot(1, 2, "a"))
	b := decodePlot(t, ComposeFeaturePlot(1, 2, "b"))
	if a.FeatureID == b.FeatureID {
		t.Fatalf("expected distinct ids, both %q", a.FeatureID)
	}
}

func TestComposeViewCenter(t *testing.T) {
	env := ComposeViewCenter(39.9334, 32.8597)
	if env.Channel() != protocol.ChannelViewCenterLocation {
		t.Fatalf("unexpected channel: %q", env.Channel())
	}
	var raw map[string]json.RawMessage
	if err := env.Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["lat"]; ok {
		t.Fatalf("lat must not be at top level: %s", env.Payload())
	}
	if _, ok := raw["lon"]; ok {
		t.Fatalf("lon must not be at top level: %s", env.Payload())
	}
	var center protocol.ViewCenter
	if err := env.Decode(&center); err != nil {
		t.Fatalf("decode center: %v", err)
	}
	if center.Location.Lat != 39.9334 || center.Location.Lon != 32.8597 {
		t.Fatalf("unexpected location: %+v", center.Location)
	}
	if center.Zoom != DefaultCenterZoom {
		t.Fatalf("unexpected zoom: %v", center.Zoom)
	}
}

func TestComposeDoesNotClamp(t *testing.T) {
	plot := decodePlot(t, ComposeFeaturePlot(120, -300, "out of range"))
	c := plot.Feature.Geometry.Coordinates
	if c[0] != -300 || c[1] != 120 {
		t.Fatalf("composer altered coordinates: %v", c)
	}
}
