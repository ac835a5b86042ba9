package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/common"
	"github.com/dmitrijs2005/coachportal/internal/logging"
)

// TokenFunc returns the bearer credential for the handshake.
type TokenFunc func(ctx context.Context) (string, error)

// WSListener subscribes over a websocket. After the handshake it sends one
// subscribe frame and then reads change frames until closed.
type WSListener struct {
	url   string
	token TokenFunc
	log   logging.Logger
}

func NewWSListener(url string, token TokenFunc, log logging.Logger) *WSListener {
	return &WSListener{url: url, token: token, log: log}
}

type subscribeFrame struct {
	Type   string `json:"type"`
	Table  string `json:"table"`
	Filter string `json:"filter"`
}

type changeFrame struct {
	EventType string             `json:"eventType"`
	New       *models.UserRecord `json:"new"`
	Old       *models.UserRecord `json:"old"`
}

func (l *WSListener) Subscribe(ctx context.Context, f Filter) (Subscription, error) {
	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if l.token != nil {
		tok, err := l.token(ctx)
		if err != nil {
			return nil, err
		}
		opts.HTTPHeader.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
	}

	conn, _, err := websocket.Dial(ctx, l.url, opts)
	if err != nil {
		return nil, fmt.Errorf("realtime dial: %w", err)
	}

	frame, _ := json.Marshal(subscribeFrame{Type: "subscribe", Table: f.Table, Filter: f.String()})
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return nil, fmt.Errorf("realtime subscribe: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &wsSubscription{
		conn:   conn,
		events: make(chan models.ChangeEvent, 16),
		cancel: cancel,
		done:   make(chan struct{}),
		log:    l.log.With("filter", f.String()),
	}
	go s.readLoop(readCtx)
	return s, nil
}

type wsSubscription struct {
	conn   *websocket.Conn
	events chan models.ChangeEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	log    logging.Logger
}

func (s *wsSubscription) Events() <-chan models.ChangeEvent { return s.events }

func (s *wsSubscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close(websocket.StatusNormalClosure, "")
		s.cancel()
		<-s.done
	})
	return err
}

func (s *wsSubscription) readLoop(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				s.log.Warn(ctx, "realtime channel dropped", "error", err)
			}
			return
		}

		ev, ok := parseChange(data)
		if !ok {
			s.log.Debug(ctx, "ignoring realtime frame", "frame", string(data))
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// parseChange decodes a change frame. Frames that are not change events
// (acks, heartbeats) report ok=false.
func parseChange(data []byte) (models.ChangeEvent, bool) {
	var f changeFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return models.ChangeEvent{}, false
	}
	t := models.EventType(strings.ToLower(f.EventType))
	switch t {
	case models.EventInsert, models.EventUpdate:
		if f.New == nil {
			return models.ChangeEvent{}, false
		}
	case models.EventDelete:
	default:
		return models.ChangeEvent{}, false
	}
	return models.ChangeEvent{Type: t, New: f.New, Old: f.Old}, true
}
