package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kozaktomas/face-finder/internal/matcher"
)

func TestSortMatches_BestFirstStable(t *testing.T) {
	in := []SearchMatch{
		{Index: 1, ScoreRaw: 0.2},
		{Index: 2, ScoreRaw: 0.6},
		{Index: 3, ScoreRaw: 0.2},
		{Index: 4, ScoreRaw: 0.4},
	}

	got := sortMatches(in)

	want := []int{2, 4, 1, 3}
	for i, m := range got {
		if m.Index != want[i] {
			t.Fatalf("position %d: expected index %d, got %d", i, want[i], m.Index)
		}
	}
	if in[0].Index != 1 {
		t.Error("input slice must not be reordered")
	}
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		title string
		max   int
		want  string
	}{
		{"", 10, "(no title)"},
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"ünïcödé title here", 8, "ünïcödé…"},
	}
	for _, tc := range tests {
		if got := truncateTitle(tc.title, tc.max); got != tc.want {
			t.Errorf("truncateTitle(%q, %d) = %q, want %q", tc.title, tc.max, got, tc.want)
		}
	}
}

func TestSearchCollector_Handle(t *testing.T) {
	c := newSearchCollector(true)

	events := []matcher.Event{
		{Type: matcher.EventStatus, Text: "Found 2 image URLs. Downloading…"},
		{Type: matcher.EventStatus, Text: "Processing image 1/2", Current: 1, Total: 2},
		{Type: matcher.EventFace, Thumb: "data:image/jpeg;base64,AA=="},
		{Type: matcher.EventCandidate, Match: &matcher.Match{Index: 1, ScoreRaw: 0.5, ScorePercent: 75, Thumb: "x"}},
		{Type: matcher.EventFinalize, Count: 1},
	}
	for _, e := range events {
		if err := c.handle(e); err != nil {
			t.Fatalf("handle returned error: %v", err)
		}
	}
	c.finish()

	if len(c.messages) != 1 || c.messages[0] != "Found 2 image URLs. Downloading…" {
		t.Errorf("expected only the non-progress status to be kept, got %v", c.messages)
	}
	if len(c.matches) != 1 || c.matches[0].ScorePercent != 75 {
		t.Errorf("unexpected matches %+v", c.matches)
	}
	if c.count != 1 {
		t.Errorf("expected count 1, got %d", c.count)
	}
	if c.bar != nil {
		t.Error("quiet collector must not create a progress bar")
	}
}

func TestPrintSearchResults_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	printSearchResults(&buf, nil, 0)

	if !strings.Contains(buf.String(), "No matches found.") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPrintSearchResults_Table(t *testing.T) {
	var buf bytes.Buffer
	printSearchResults(&buf, []SearchMatch{{
		Index:        3,
		PostURL:      "https://www.reddit.com/r/pics/comments/abc/x/",
		Title:        "Sunny day",
		Date:         "2024-05-01",
		ScoreRaw:     0.61,
		ScorePercent: 81,
	}}, 1)

	out := buf.String()
	for _, want := range []string{"Sunny day", "2024-05-01", "0.610", "Found 1 candidates."} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
