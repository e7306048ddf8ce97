package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	storyquestv1 "github.com/eslsoft/storyquest/api/storyquest/v1"
	"github.com/eslsoft/storyquest/internal/adapter/actor"
	"github.com/eslsoft/storyquest/internal/adapter/connectrpc"
	"github.com/eslsoft/storyquest/internal/adapter/events"
	adaptergrpc "github.com/eslsoft/storyquest/internal/adapter/grpc"
	"github.com/eslsoft/storyquest/internal/adapter/mapping"
	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
	"github.com/eslsoft/storyquest/internal/usecase"
)

type stubUsers struct {
	mu     sync.RWMutex
	guests map[string]bool
}

func (s *stubUsers) EnsureGuest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guests[id] = true
	return nil
}

func (s *stubUsers) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guests[id], nil
}

func (s *stubUsers) ListRegisteredIDs(context.Context, string, int) ([]string, error) {
	return nil, nil
}

// stubTasks only answers CreateTask; other methods are never reached here.
type stubTasks struct {
	usecase.TaskUsecase
}

func (stubTasks) CreateTask(_ context.Context, a entity.Actor, title, grade string) (*entity.Task, error) {
	return &entity.Task{ID: "t1", UserID: a.UserID, Title: title, Grade: entity.Grade(grade), Status: entity.TaskStatusUploaded}, nil
}

type stubChallenges struct {
	usecase.ChallengeUsecase
}

func (stubChallenges) TaskProgress(_ context.Context, a entity.Actor, taskID string) (entity.TaskProgress, error) {
	if taskID != "t1" {
		return entity.TaskProgress{}, entity.ErrTaskNotFound
	}
	return entity.TaskProgress{TaskID: taskID}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{Server: config.ServerConfig{CORSOrigins: []string{"https://app.example"}}}

	hub := events.NewHub(logger)
	srv, err := NewServer(
		cfg,
		logger,
		connectrpc.NewTaskServiceServer(stubTasks{}),
		connectrpc.NewChallengeServiceServer(stubChallenges{}),
		adaptergrpc.NewProgressRoutes(stubChallenges{}, logger),
		events.NewWebSocketHandler(cfg, hub, stubTasks{}, logger),
		actor.NewResolver(config.AuthConfig{}, &stubUsers{guests: map[string]bool{}}, logger),
	)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestConnectCallIssuesGuestCookie(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+storyquestv1.TaskServiceCreateTaskProcedure, strings.NewReader(`{"title":"Animals","grade":"3"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"title":"Animals"`) {
		t.Fatalf("unexpected body %s", body)
	}
	var guest *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "storyquest_guest_id" {
			guest = c
		}
	}
	if guest == nil || !entity.IsGuestID(guest.Value) {
		t.Fatalf("expected guest cookie, got %v", resp.Cookies())
	}
}

func TestProgressGatewayIsMounted(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/tasks/t1/progress")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/v1/tasks/missing/progress")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get(mapping.ErrorReasonHeader); got == "" {
		t.Fatalf("missing error reason header")
	}
}

func TestMetricsSkipsActorResolution(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(resp.Cookies()) != 0 {
		t.Fatalf("metrics should not issue cookies")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+storyquestv1.TaskServiceCreateTaskProcedure, nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow origin = %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("credentials not allowed")
	}
}
