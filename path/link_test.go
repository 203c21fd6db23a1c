package path

import "testing"

type segments map[SegmentID]*Segment

func (m segments) Segment(id SegmentID) *Segment { return m[id] }

func TestAddLinkDeduplicates(t *testing.T) {
	s := lineSegment(t, "a", 10000, 2, nil)

	if !s.AddLink(Link{Target: 1, ThisDistance: 5000, NextDistance: 0, Forward: true}) {
		t.Fatal("first link rejected")
	}
	if s.AddLink(Link{Target: 1, ThisDistance: 5050, NextDistance: 40, Forward: true}) {
		t.Error("link within a meter at both ends should be a duplicate")
	}
	if !s.AddLink(Link{Target: 1, ThisDistance: 5200, NextDistance: 0, Forward: true}) {
		t.Error("link two meters away should be distinct")
	}
	if !s.AddLink(Link{Target: 2, ThisDistance: 5000, NextDistance: 0, Forward: true}) {
		t.Error("link to another target should be distinct")
	}
	if len(s.Links) != 3 {
		t.Errorf("links = %d, want 3", len(s.Links))
	}
}

func TestLinkIsRouteChoice(t *testing.T) {
	loop := loopSegment(t, "loop", 1000)
	short := lineSegment(t, "short", 4000, 2, nil)
	long := lineSegment(t, "long", 8000, 2, nil)

	tests := []struct {
		name   string
		link   Link
		target *Segment
		want   bool
	}{
		{"loop target", Link{NextDistance: 6000, Forward: true}, loop, true},
		{"short remainder", Link{NextDistance: 0, Forward: true}, short, false},
		{"long remainder", Link{NextDistance: 2000, Forward: true}, long, true},
		{"long but near end", Link{NextDistance: 4000, Forward: true}, long, false},
		{"backward", Link{NextDistance: 0, Forward: false}, long, false},
		{"missing target", Link{Forward: true}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LinkIsRouteChoice(tt.link, tt.target); got != tt.want {
				t.Errorf("LinkIsRouteChoice = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeRouteChoicesGroupsByDistance(t *testing.T) {
	main := lineSegment(t, "main", 20000, 2, nil)
	left := lineSegment(t, "left", 10000, 2, nil)
	right := lineSegment(t, "right", 10000, 2, nil)
	stub := lineSegment(t, "stub", 1000, 2, nil)
	main.ID, left.ID, right.ID, stub.ID = 0, 1, 2, 3
	all := segments{0: main, 1: left, 2: right, 3: stub}

	main.AddLink(Link{Target: 1, ThisDistance: 5000, Forward: true})
	main.AddLink(Link{Target: 2, ThisDistance: 5040, Forward: true})
	main.AddLink(Link{Target: 3, ThisDistance: 12000, Forward: true})
	main.AddLink(Link{Target: 1, ThisDistance: 20000, NextDistance: 3000, Forward: true})
	main.AddLink(Link{Target: 2, ThisDistance: 0, NextDistance: 9000, Forward: false})
	main.ComputeRouteChoices(all)

	if len(main.RouteChoices) != 2 {
		t.Fatalf("route choices = %d, want 2: %+v", len(main.RouteChoices), main.RouteChoices)
	}
	first := main.RouteChoices[0]
	if first.DecisionDistance != 5000 || len(first.Links) != 2 || !first.CanStay {
		t.Errorf("first choice = %+v", first)
	}
	end := main.RouteChoices[1]
	if end.DecisionDistance != 20000 || end.CanStay {
		t.Errorf("end choice = %+v", end)
	}
}

func TestIsAboutToMergeWith(t *testing.T) {
	branch := lineSegment(t, "branch", 10000, 2, nil)
	branch.AddLink(Link{Target: 0, ThisDistance: 10000, NextDistance: 4000, Forward: true})
	branch.AddLink(Link{Target: 2, ThisDistance: 3000, NextDistance: 0, Forward: true})

	if !branch.IsAboutToMergeWith(0, 7000) {
		t.Error("30m before the end should be merging")
	}
	if branch.IsAboutToMergeWith(0, 2000) {
		t.Error("80m before the end is beyond the lookahead")
	}
	if branch.IsAboutToMergeWith(2, 2900) {
		t.Error("a mid-segment branch is not a merge")
	}
}

func TestForwardLinksNear(t *testing.T) {
	s := lineSegment(t, "s", 10000, 2, nil)
	s.AddLink(Link{Target: 1, ThisDistance: 10000, Forward: true})
	s.AddLink(Link{Target: 2, ThisDistance: 9950, NextDistance: 500, Forward: false})

	got := s.ForwardLinksNear(9990, 100)
	if len(got) != 1 || got[0].Target != 1 {
		t.Errorf("ForwardLinksNear = %+v", got)
	}
}
