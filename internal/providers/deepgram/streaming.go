// Package deepgram streams microphone audio to Deepgram over a websocket and
// yields transcript events for the voice collaborator.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"airvoice/internal/ports"
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Provider implements ports.TranscriptionProvider for Deepgram.
type Provider struct {
	cfg Config
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Provider{cfg: cfg}
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	wsURL, err := listenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	session := newLiveSession(conn)
	session.start(ctx)
	return session, nil
}

// liveSession owns one websocket connection. Audio chunks flow through the
// outgoing channel so SendAudio never blocks on the socket, and both pump
// goroutines report the first failure they hit.
type liveSession struct {
	conn *websocket.Conn

	results  chan ports.TranscriptEvent
	outgoing chan []byte
	done     chan struct{}

	pumps sync.WaitGroup

	sendClosed atomic.Bool
	closeSend  sync.Once
	closeAll   sync.Once

	failMu  sync.Mutex
	failure error
}

func newLiveSession(conn *websocket.Conn) *liveSession {
	return &liveSession{
		conn:     conn,
		results:  make(chan ports.TranscriptEvent, 64),
		outgoing: make(chan []byte, 32),
		done:     make(chan struct{}),
	}
}

func (s *liveSession) start(ctx context.Context) {
	s.pumps.Add(2)
	go s.pumpAudio()
	go s.pumpResults()

	go func() {
		s.pumps.Wait()
		close(s.results)
		close(s.done)
		_ = s.conn.Close()
	}()
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
}

func (s *liveSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	if s.sendClosed.Load() {
		return errors.New("audio stream is already closed")
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.outgoing <- copied:
		return nil
	case <-s.done:
		if err := s.firstFailure(); err != nil {
			return err
		}
		return errors.New("session closed")
	}
}

func (s *liveSession) CloseSend() error {
	s.closeSend.Do(func() {
		s.sendClosed.Store(true)
		close(s.outgoing)
	})
	return nil
}

func (s *liveSession) Events() <-chan ports.TranscriptEvent {
	return s.results
}

func (s *liveSession) Wait() error {
	<-s.done
	return s.firstFailure()
}

func (s *liveSession) Close() error {
	s.closeAll.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.firstFailure()
}

func (s *liveSession) firstFailure() error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failure
}

// fail records the first real error. Normal websocket closes are not
// failures: the peer hanging up after CloseStream is the happy path.
func (s *liveSession) fail(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.failMu.Lock()
	defer s.failMu.Unlock()
	if s.failure == nil {
		s.failure = err
	}
}

func (s *liveSession) pumpAudio() {
	defer s.pumps.Done()

	for chunk := range s.outgoing {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.fail(fmt.Errorf("failed to send audio: %w", err))
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.fail(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *liveSession) pumpResults() {
	defer s.pumps.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		event, fatal, ok := decodeListenPayload(payload)
		if fatal != nil {
			s.fail(fatal)
			return
		}
		if !ok {
			continue
		}

		select {
		case s.results <- event:
		case <-s.done:
		default:
		}
	}
}

// decodeListenPayload turns one websocket text frame into a transcript event.
// Frames that do not parse, or carry an empty transcript, are skipped.
func decodeListenPayload(payload []byte) (event ports.TranscriptEvent, fatal error, ok bool) {
	var response listenResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return ports.TranscriptEvent{}, nil, false
	}

	if strings.EqualFold(response.Type, "Error") {
		message := strings.TrimSpace(response.Message)
		if message == "" {
			message = "deepgram returned an unknown error"
		}
		return ports.TranscriptEvent{}, errors.New(message), false
	}

	text := response.transcript()
	if text == "" {
		return ports.TranscriptEvent{}, nil, false
	}

	event = ports.TranscriptEvent{Text: text, IsSpeechFinal: response.SpeechFinal}
	if response.IsFinal || response.SpeechFinal {
		event.Kind = ports.TranscriptFinal
	} else {
		event.Kind = ports.TranscriptPartial
	}
	return event, nil, true
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r listenResponse) transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

func listenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	parsed, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	query := parsed.Query()
	query.Set("model", providerCfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	query.Set("channels", strconv.Itoa(streamCfg.Channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if providerCfg.Language != "" {
		query.Set("language", providerCfg.Language)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
