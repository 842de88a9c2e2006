// Package gesture consumes hand pose frames from an external tracker process
// over a websocket and republishes them as overlay signals.
package gesture

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"airvoice/internal/domain"
	"airvoice/internal/ports"
)

// Source is the signal source tag for gesture events.
const Source = "gesture"

// frame is one tracker message. Type is "pose" while a hand is tracked and
// "lost" when tracking drops.
type frame struct {
	Type         string         `json:"type"`
	Palm         domain.Point   `json:"palm"`
	Landmarks    []domain.Point `json:"landmarks"`
	ActiveFinger int            `json:"activeFinger"`
	HoverKey     string         `json:"hoverKey"`
}

// Feed is a reconnecting websocket client for the hand tracker.
type Feed struct {
	url        string
	signals    ports.SignalPublisher
	log        *zap.Logger
	retryDelay time.Duration
}

// NewFeed wires a tracker feed for url.
func NewFeed(url string, signals ports.SignalPublisher, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{url: url, signals: signals, log: log, retryDelay: 2 * time.Second}
}

// Run connects and consumes frames until ctx is cancelled, reconnecting after
// failures. A dropped connection counts as losing the hand.
func (f *Feed) Run(ctx context.Context) {
	for {
		if err := f.consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
			f.log.Debug("tracker feed disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.retryDelay):
		}
	}
}

func (f *Feed) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// The watchdog lives only as long as this connection, so reconnect
	// cycles do not accumulate parked goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	f.log.Info("tracker feed connected", zap.String("url", f.url))
	tracking := false
	defer func() {
		if tracking {
			f.signals.Publish(domain.NewSignal(domain.SignalHandLost, Source))
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var msg frame
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "pose":
			tracking = true
			f.signals.Publish(domain.NewHandDetected(Source, domain.HandPose{
				Palm:         msg.Palm,
				Landmarks:    msg.Landmarks,
				ActiveFinger: msg.ActiveFinger,
				HoverKey:     msg.HoverKey,
			}))
		case "lost":
			if tracking {
				tracking = false
				f.signals.Publish(domain.NewSignal(domain.SignalHandLost, Source))
			}
		}
	}
}
