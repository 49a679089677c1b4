package matcher

import (
	"encoding/json"
	"fmt"
)

// EventType identifies the kind of a job event.
type EventType string

// Event types, in the order a successful job emits them.
const (
	EventStatus    EventType = "status"
	EventFace      EventType = "face"
	EventCandidate EventType = "candidate"
	EventFinalize  EventType = "finalize"
)

// Match is one candidate that passed face detection and the score threshold.
type Match struct {
	Index        int     `json:"index"`
	PostURL      string  `json:"post_url"`
	ImageURL     string  `json:"image_url"`
	Title        string  `json:"title"`
	Date         string  `json:"date"`
	ScoreRaw     float64 `json:"score_raw"`
	ScorePercent int     `json:"score_pct"`
	Color        string  `json:"color"`
	Thumb        string  `json:"thumb"`
}

// Event is one item of a job's event stream.
type Event struct {
	Type  EventType
	Text  string // status
	Thumb string // face
	Match *Match // candidate
	Count int    // finalize

	// Current and Total are set on per-candidate progress statuses only.
	// They are not part of the wire shape.
	Current int
	Total   int
}

func statusEvent(text string) Event { return Event{Type: EventStatus, Text: text} }

func progressEvent(current, total int) Event {
	return Event{Type: EventStatus, Text: fmt.Sprintf(msgProcessing, current, total), Current: current, Total: total}
}

func faceEvent(thumb string) Event { return Event{Type: EventFace, Thumb: thumb} }

func candidateEvent(m Match) Event { return Event{Type: EventCandidate, Match: &m} }

func finalizeEvent(count int) Event { return Event{Type: EventFinalize, Count: count} }

// MarshalJSON renders the flat wire shape the front end reads, e.g.
// {"type":"status","text":"..."} or {"type":"finalize","count":3}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventStatus:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Text string    `json:"text"`
		}{e.Type, e.Text})
	case EventFace:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Thumb string    `json:"thumb"`
		}{e.Type, e.Thumb})
	case EventCandidate:
		var m Match
		if e.Match != nil {
			m = *e.Match
		}
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Match
		}{e.Type, m})
	default:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Count int       `json:"count"`
		}{e.Type, e.Count})
	}
}
