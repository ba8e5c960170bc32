// Package mqtt bridges an MQTT broker to running navigation sessions.
//
// Sensor samples arrive on
//
//	<prefix>/<session>/heading   {"deg": 92.5, "at": "..."} or a bare number
//	<prefix>/<session>/accel     {"x": 0.1, "y": 1.9, "z": 9.8, "at": "..."}
//	<prefix>/<session>/step      empty or {"at": "..."}
//
// and cues are published to <prefix>/<session>/cue. A missing "at" means
// the engine clock's now.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/feedback"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "wayfinder"

// Client is the subset of paho.Client the bridge uses.
type Client interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Sessions is the subset of session.Manager the bridge uses.
type Sessions interface {
	Subscribe(sessionID string) (*wayfinder.Subscription, error)
	Active() []string
	View(sessionID string) (wayfinder.View, error)
}

// Bridge forwards MQTT sensor messages into sessions and publishes cues.
type Bridge struct {
	client   Client
	sessions Sessions
	prefix   string
	qos      byte
	timeout  time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[string]*wayfinder.Subscription
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithPrefix sets the topic root.
func WithPrefix(prefix string) Option {
	return func(b *Bridge) {
		b.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithQoS sets the QoS used for subscriptions and publishes.
func WithQoS(qos byte) Option {
	return func(b *Bridge) {
		b.qos = qos
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithTimeout bounds how long the bridge waits on a broker token.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		b.timeout = d
	}
}

// NewBridge creates a bridge. Call Start to subscribe.
func NewBridge(client Client, sessions Sessions, opts ...Option) *Bridge {
	b := &Bridge{
		client:   client,
		sessions: sessions,
		prefix:   DefaultPrefix,
		timeout:  5 * time.Second,
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		subs:     make(map[string]*wayfinder.Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect dials a broker with paho defaults suitable for a long running bridge.
func Connect(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return client, nil
}

func (b *Bridge) topics() []string {
	return []string{
		b.prefix + "/+/heading",
		b.prefix + "/+/accel",
		b.prefix + "/+/step",
	}
}

// Start subscribes to the sensor topics.
func (b *Bridge) Start() error {
	for _, topic := range b.topics() {
		if err := b.wait(b.client.Subscribe(topic, b.qos, b.handle)); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		b.logger.Debug("subscribed", "topic", topic)
	}
	return nil
}

// Stop unsubscribes and detaches every sensor feed.
func (b *Bridge) Stop() error {
	err := b.wait(b.client.Unsubscribe(b.topics()...))

	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*wayfinder.Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return err
}

func (b *Bridge) wait(token paho.Token) error {
	if !token.WaitTimeout(b.timeout) {
		return errors.New("mqtt: timed out waiting for broker")
	}
	return token.Error()
}

// sink returns a live subscription for the session, opening a new one after
// the engine halted the previous feed.
func (b *Bridge) sink(sessionID string) (*wayfinder.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[sessionID]; ok && sub.Active() {
		return sub, nil
	}
	sub, err := b.sessions.Subscribe(sessionID)
	if err != nil {
		delete(b.subs, sessionID)
		return nil, err
	}
	b.subs[sessionID] = sub
	return sub, nil
}

func (b *Bridge) handle(_ paho.Client, msg paho.Message) {
	sessionID, kind, ok := b.parseTopic(msg.Topic())
	if !ok {
		return
	}
	log := b.logger.With("session_id", sessionID, "topic", msg.Topic())

	sub, err := b.sink(sessionID)
	if err != nil {
		log.Debug("dropping sample", "err", err)
		return
	}

	if err := forward(sub, kind, msg.Payload()); err != nil {
		log.Warn("bad sample", "err", err)
	}
}

func (b *Bridge) parseTopic(topic string) (sessionID, kind string, ok bool) {
	rest, found := strings.CutPrefix(topic, b.prefix+"/")
	if !found {
		return "", "", false
	}
	sessionID, kind, found = strings.Cut(rest, "/")
	if !found || sessionID == "" || strings.Contains(kind, "/") {
		return "", "", false
	}
	return sessionID, kind, true
}

type sample struct {
	Deg *float64  `json:"deg"`
	X   float64   `json:"x"`
	Y   float64   `json:"y"`
	Z   float64   `json:"z"`
	At  time.Time `json:"at"`
}

func forward(sink *wayfinder.Subscription, kind string, payload []byte) error {
	trimmed := strings.TrimSpace(string(payload))

	if kind == "heading" {
		if deg, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return sink.PushHeading(deg, time.Time{})
		}
	}

	var s sample
	if trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}

	switch kind {
	case "heading":
		if s.Deg == nil {
			return errors.New("heading payload without deg")
		}
		return sink.PushHeading(*s.Deg, s.At)
	case "accel":
		return sink.PushAccel(domain.Vector{X: s.X, Y: s.Y, Z: s.Z}, s.At)
	case "step":
		return sink.PushStep(s.At)
	default:
		return fmt.Errorf("unknown sample kind %q", kind)
	}
}

// CueMessage is the payload published on <prefix>/<session>/cue.
type CueMessage struct {
	SessionID     string       `json:"session_id"`
	WaypointIndex int          `json:"waypoint_index"`
	Direction     string       `json:"direction"`
	Aligned       bool         `json:"aligned"`
	Active        bool         `json:"active"`
	Completed     bool         `json:"completed"`
	Cue           feedback.Cue `json:"cue"`
}

// PublishCues publishes the current cue of every active session.
func (b *Bridge) PublishCues() error {
	var errs []error
	for _, id := range b.sessions.Active() {
		view, err := b.sessions.View(id)
		if err != nil {
			continue
		}
		payload, err := json.Marshal(CueMessage{
			SessionID:     id,
			WaypointIndex: view.Session.CurrentWaypointIndex,
			Direction:     view.Alignment.Direction,
			Aligned:       view.Alignment.Aligned,
			Active:        view.Session.Active,
			Completed:     view.Session.Completed,
			Cue:           view.Cue,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		topic := b.prefix + "/" + id + "/cue"
		if err := b.wait(b.client.Publish(topic, b.qos, false, payload)); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// Run publishes cues every interval until ctx is done.
func (b *Bridge) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := b.PublishCues(); err != nil {
				b.logger.Warn("cue publish failed", "err", err)
			}
		}
	}
}
