package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Sample is one sensor reading on the wire.
//
//	{"kind": "heading", "deg": 91.5}
//	{"kind": "accel", "x": 0.2, "y": 1.8, "z": 9.7}
//	{"kind": "step"}
//
// A missing "at" means now.
type Sample struct {
	Kind string    `json:"kind"`
	Deg  *float64  `json:"deg,omitempty"`
	X    float64   `json:"x,omitempty"`
	Y    float64   `json:"y,omitempty"`
	Z    float64   `json:"z,omitempty"`
	At   time.Time `json:"at,omitempty"`
}

// Push forwards the sample into sink.
func (s Sample) Push(sink ports.SampleSink) error {
	switch s.Kind {
	case "heading":
		if s.Deg == nil {
			return fmt.Errorf("heading sample without deg")
		}
		return sink.PushHeading(*s.Deg, s.At)
	case "accel":
		return sink.PushAccel(domain.Vector{X: s.X, Y: s.Y, Z: s.Z}, s.At)
	case "step":
		return sink.PushStep(s.At)
	default:
		return fmt.Errorf("unknown sample kind %q", s.Kind)
	}
}

// PostSamples handles POST /sessions/{sessionID}/samples with a JSON array.
func (s *Server) PostSamples(w http.ResponseWriter, r *http.Request) {
	var samples []Sample
	if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
		s.badRequest(w, "invalid samples", err)
		return
	}

	sub, err := s.Sessions.Subscribe(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sub.Close()

	for i, sample := range samples {
		if err := sample.Push(sub); err != nil {
			s.badRequest(w, fmt.Sprintf("sample %d", i), err)
			return
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(samples)})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Ingest handles GET /sessions/{sessionID}/ws: a WebSocket carrying one
// Sample per text message. The socket is closed when the session halts its
// sensor feeds.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sub, err := s.Sessions.Subscribe(sessionID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "err", err)
		return
	}
	defer conn.Close()

	sub.OnClose(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed halted")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	for {
		var sample Sample
		if err := conn.ReadJSON(&sample); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "session_id", sessionID, "err", err)
			}
			return
		}
		if !sub.Active() {
			return
		}
		if err := sample.Push(sub); err != nil {
			s.logger.Warn("bad sample", "session_id", sessionID, "err", err)
		}
	}
}
