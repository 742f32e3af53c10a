package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRegistryHasExactlyTheCMAPIChannels(t *testing.T) {
	want := map[Channel]Direction{
		ChannelFeaturePlot:        HostToSurface,
		ChannelViewCenterLocation: HostToSurface,
		ChannelViewClicked:        SurfaceToHost,
		ChannelStatusView:         SurfaceToHost,
		ChannelMessageComplete:    SurfaceToHost,
	}
	all := Channels()
	if len(all) != len(want) {
		t.Fatalf("unexpected channel count: %d", len(all))
	}
	for ch, dir := range want {
		d, ok := Describe(ch)
		if !ok {
			t.Fatalf("missing channel %q", ch)
		}
		if d.Channel != ch {
			t.Fatalf("descriptor channel mismatch: %q != %q", d.Channel, ch)
		}
		if d.Direction != dir {
			t.Fatalf("unexpected direction for %q: %s", ch, d.Direction)
		}
		if d.Shape == "" || d.Summary == "" {
			t.Fatalf("descriptor for %q lacks shape or summary", ch)
		}
	}
}

func TestChannelsSortedAndDotDelimited(t *testing.T) {
	all := Channels()
	for i, d := range all {
		if !strings.HasPrefix(string(d.Channel), "map.") || strings.Count(string(d.Channel), ".") < 2 {
			t.Fatalf("unexpected channel name %q", d.Channel)
		}
		if i > 0 && all[i-1].Channel >= d.Channel {
			t.Fatalf("channels not sorted: %q before %q", all[i-1].Channel, d.Channel)
		}
	}
}

func TestDescribeUnknownChannel(t *testing.T) {
	if _, ok := Describe("unknown.channel.x"); ok {
		t.Fatalf("expected unknown channel to be absent")
	}
	if _, ok := Describe(""); ok {
		t.Fatalf("expected empty channel to be absent")
	}
}

func TestDescriptorDirections(t *testing.T) {
	plot, _ := Describe(ChannelFeaturePlot)
	if !plot.Outbound() || plot.Inbound() {
		t.Fatalf("unexpected plot direction: %+v", plot)
	}
	click, _ := Describe(ChannelViewClicked)
	if click.Outbound() || !click.Inbound() {
		t.Fatalf("unexpected click direction: %+v", click)
	}
	both := Descriptor{Direction: Both}
	if !both.Outbound() || !both.Inbound() {
		t.Fatalf("both should allow either direction")
	}
}

func TestDescriptorJSON(t *testing.T) {
	d, _ := Describe(ChannelViewClicked)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"direction":"surface_to_host"`) {
		t.Fatalf("unexpected descriptor json: %s", data)
	}
}

func TestPointFeatureAxisOrder(t *testing.T) {
	f := PointFeature(GeoPoint{Lat: 39.9334, Lon: 32.8597})
	if f.Type != "Feature" || f.Geometry.Type != "Point" {
		t.Fatalf("unexpected feature: %+v", f)
	}
	c := f.Geometry.Coordinates
	if len(c) != 3 || c[0] != 32.8597 || c[1] != 39.9334 || c[2] != 0 {
		t.Fatalf("unexpected coordinates: %v", c)
	}
}
