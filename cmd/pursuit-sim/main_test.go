package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lixenwraith/pursuit/status"
)

func TestLoadTrackEmbedded(t *testing.T) {
	lvl, err := loadTrack("oval")
	if err != nil {
		t.Fatalf("loadTrack: %v", err)
	}
	if lvl.Name != "oval" || lvl.Master != "main" {
		t.Errorf("loaded %q master %q", lvl.Name, lvl.Master)
	}
	if _, err := loadTrack("no-such-track"); err == nil {
		t.Error("unknown track loaded")
	}
}

func TestPrintMetrics(t *testing.T) {
	reg := status.NewRegistry()
	reg.Inc(status.Relocalizations)
	reg.Inc(status.Relocalizations)
	reg.Gauge(status.Agents).Set(3)

	var buf bytes.Buffer
	if err := printMetrics(&buf, reg); err != nil {
		t.Fatalf("printMetrics: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"pursuit_relocalizations_total 2", "pursuit_agents 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestProfileNamesSorted(t *testing.T) {
	names := profileNames()
	if len(names) < 2 || names[0] != "heavy" || names[1] != "stock" {
		t.Errorf("profiles = %v", names)
	}
}
