package runner

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/domain"
)

// Record is one NDJSON line written by JSONHandler.
type Record struct {
	Kind  string                  `json:"kind"`
	AtMS  int64                   `json:"at_ms"`
	Entry EntryType               `json:"entry,omitempty"`
	Event *domain.NavigationEvent `json:"event,omitempty"`
	View  *wayfinder.View         `json:"view,omitempty"`
}

// JSONHandler writes events and frames as JSON lines.
type JSONHandler struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONHandler creates a handler writing to w.
func NewJSONHandler(w io.Writer) *JSONHandler {
	return &JSONHandler{encoder: json.NewEncoder(w)}
}

func (h *JSONHandler) Event(_ context.Context, atMS int64, e domain.NavigationEvent) error {
	return h.write(Record{Kind: "event", AtMS: atMS, Event: &e})
}

func (h *JSONHandler) Frame(_ context.Context, f Frame) error {
	return h.write(Record{Kind: "frame", AtMS: f.AtMS, Entry: f.Entry, View: &f.View})
}

func (h *JSONHandler) write(r Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoder.Encode(r)
}
