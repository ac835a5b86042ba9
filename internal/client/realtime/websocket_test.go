package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/coachportal/internal/client/models"
	"github.com/dmitrijs2005/coachportal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChannelServer accepts one websocket, hands the received subscribe
// frame to got and then writes frames.
func newChannelServer(t *testing.T, got chan<- subscribeFrame, auth chan<- string, frames []string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var sub subscribeFrame
		_ = json.Unmarshal(data, &sub)
		got <- sub

		for _, f := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFilter(t *testing.T) {
	f := UserFilter("1111")
	assert.Equal(t, "users", f.Table)
	assert.Equal(t, "id=eq.1111", f.String())
}

func TestWSListener_SubscribeAndReceive(t *testing.T) {
	got := make(chan subscribeFrame, 1)
	auth := make(chan string, 1)
	url := newChannelServer(t, got, auth, []string{
		`{"type":"ack"}`,
		`{"eventType":"UPDATE","new":{"id":"1111","full_name":"Asha R"}}`,
		`not json`,
		`{"eventType":"update"}`,
		`{"eventType":"Delete","old":{"id":"1111"}}`,
	})

	l := NewWSListener(url, func(ctx context.Context) (string, error) { return "A1", nil }, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := l.Subscribe(ctx, UserFilter("1111"))
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, "Bearer A1", <-auth)
	assert.Equal(t, subscribeFrame{Type: "subscribe", Table: "users", Filter: "id=eq.1111"}, <-got)

	var events []models.ChangeEvent
	for ev := range sub.Events() {
		events = append(events, ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, models.EventUpdate, events[0].Type)
	assert.Equal(t, "Asha R", events[0].New.FullName)
	assert.Equal(t, models.EventDelete, events[1].Type)
	assert.Equal(t, "1111", events[1].Old.ID)
}

func TestWSListener_DialFailure(t *testing.T) {
	l := NewWSListener("ws://127.0.0.1:1/realtime", nil, logging.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := l.Subscribe(ctx, UserFilter("1111"))
	require.Error(t, err)
}

func TestWSListener_CloseEndsFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	l := NewWSListener("ws"+strings.TrimPrefix(srv.URL, "http"), nil, logging.Nop())
	sub, err := l.Subscribe(context.Background(), UserFilter("1111"))
	require.NoError(t, err)

	_ = sub.Close()
	_, open := <-sub.Events()
	assert.False(t, open)
	_ = sub.Close()
}

func TestParseChange(t *testing.T) {
	ev, ok := parseChange([]byte(`{"eventType":"INSERT","new":{"id":"1"}}`))
	require.True(t, ok)
	assert.True(t, ev.IsUpsert())

	_, ok = parseChange([]byte(`{"eventType":"truncate"}`))
	assert.False(t, ok)
}
