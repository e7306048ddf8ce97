package events

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/adapter/actor"
	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/usecase"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestHubRoutesByUserAndTask(t *testing.T) {
	hub := NewHub(quietLogger())
	mine, cancelMine := hub.Subscribe("u1", "t1")
	defer cancelMine()
	all, cancelAll := hub.Subscribe("u1", "")
	defer cancelAll()
	other, cancelOther := hub.Subscribe("u2", "")
	defer cancelOther()

	_ = hub.PublishTaskEvent(context.Background(), usecase.TaskEvent{TaskID: "t1", UserID: "u1", Status: entity.TaskStatusGenerating})
	_ = hub.PublishTaskEvent(context.Background(), usecase.TaskEvent{TaskID: "t2", UserID: "u1", Status: entity.TaskStatusReady})

	if ev := <-mine; ev.TaskID != "t1" {
		t.Fatalf("task subscriber got %+v", ev)
	}
	if len(mine) != 0 {
		t.Fatalf("task subscriber should not see other tasks")
	}
	if len(all) != 2 {
		t.Fatalf("user subscriber should see both events, got %d", len(all))
	}
	if len(other) != 0 {
		t.Fatalf("events leaked to another user")
	}
}

func TestHubCancelIsIdempotent(t *testing.T) {
	hub := NewHub(quietLogger())
	ch, cancel := hub.Subscribe("u1", "")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
	if hub.Len() != 0 {
		t.Fatalf("subscriber not removed")
	}
	hub.Deliver(usecase.TaskEvent{UserID: "u1"})
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub(quietLogger())
	ch, cancel := hub.Subscribe("u1", "")
	defer cancel()
	for i := 0; i < _subscriberBuffer+5; i++ {
		hub.Deliver(usecase.TaskEvent{UserID: "u1", TaskID: "t1"})
	}
	if len(ch) != _subscriberBuffer {
		t.Fatalf("expected a full buffer, got %d", len(ch))
	}
}

type fakeTasks struct{ task *entity.Task }

func (f fakeTasks) GetTaskDetail(_ context.Context, a entity.Actor, id string) (*entity.TaskDetail, error) {
	if f.task == nil || f.task.ID != id || f.task.UserID != a.UserID {
		return nil, entity.ErrTaskNotFound
	}
	return &entity.TaskDetail{Task: f.task}, nil
}

func TestWebSocketStreamsTaskEvents(t *testing.T) {
	hub := NewHub(quietLogger())
	task := &entity.Task{ID: "t1", UserID: "u1", Status: entity.TaskStatusConfirmed, UpdatedAt: time.Now()}
	ws := newWebSocketHandler([]string{"https://app.example"}, hub, fakeTasks{task: task}, quietLogger())

	mux := http.NewServeMux()
	mux.Handle("GET /v1/tasks/{task_id}/events", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeHTTP(w, r.WithContext(actor.NewContext(r.Context(), entity.RegisteredActor(r.Header.Get("X-User")))))
	}))
	srv := httptest.NewServer(mux)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/tasks/t1/events"

	if _, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-User": {"intruder"}}); err == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign user should get 404, got %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-User": {"u1"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot usecase.TaskEvent
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Status != entity.TaskStatusConfirmed {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	hub.Deliver(usecase.TaskEvent{TaskID: "t1", UserID: "u1", Status: entity.TaskStatusGenerating, Stage: usecase.StageStory})
	var ev usecase.TaskEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Status != entity.TaskStatusGenerating || ev.Stage != usecase.StageStory {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(quietLogger())
	task := &entity.Task{ID: "t1", UserID: "u1", Status: entity.TaskStatusReady, UpdatedAt: time.Now()}
	ws := newWebSocketHandler([]string{"https://app.example", "https://*.storyquest.test"}, hub, fakeTasks{task: task}, quietLogger())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.SetPathValue("task_id", "t1")
		ws.ServeHTTP(w, r.WithContext(actor.NewContext(r.Context(), entity.RegisteredActor("u1"))))
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/tasks/t1/events"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign origin should be refused with 403, got %v", err)
	}

	for _, origin := range []string{"https://app.example", "https://kids.storyquest.test", srv.URL} {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {origin}})
		if err != nil {
			t.Fatalf("origin %s: dial: %v", origin, err)
		}
		_ = conn.Close()
	}
}

func TestOriginMatchesWildcard(t *testing.T) {
	cases := []struct {
		pattern, origin string
		want            bool
	}{
		{"*", "https://any.example", true},
		{"https://*.example.com", "https://a.example.com", true},
		{"https://*.example.com", "https://example.com", false},
		{"https://app.example", "https://app.example.evil", false},
	}
	for _, tc := range cases {
		if got := originMatches(tc.pattern, tc.origin); got != tc.want {
			t.Errorf("originMatches(%q, %q) = %v, want %v", tc.pattern, tc.origin, got, tc.want)
		}
	}
}
