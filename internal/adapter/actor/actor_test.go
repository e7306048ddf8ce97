package actor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/internal/infrastructure/config"
)

type fakeUsers struct {
	mu     sync.RWMutex
	guests map[string]bool
}

func (f *fakeUsers) EnsureGuest(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.guests == nil {
		f.guests = map[string]bool{}
	}
	f.guests[id] = true
	return nil
}

func (f *fakeUsers) Exists(_ context.Context, id string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.guests[id], nil
}

func (f *fakeUsers) ListRegisteredIDs(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func newResolver(t *testing.T, secret string) (*Resolver, *fakeUsers) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	users := &fakeUsers{}
	return NewResolver(config.AuthConfig{JWTSecret: secret}, users, logger), users
}

func TestResolveIssuesGuestCookie(t *testing.T) {
	res, users := newResolver(t, "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	a, cookie, err := res.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !a.IsGuest || !entity.IsGuestID(a.UserID) {
		t.Fatalf("expected guest actor, got %+v", a)
	}
	if cookie == nil || cookie.Name != "storyquest_guest_id" || cookie.Value != a.UserID || cookie.MaxAge != 30*24*3600 {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	if ok, _ := users.Exists(context.Background(), a.UserID); !ok {
		t.Fatalf("guest row was not ensured")
	}

	// A returning guest keeps the id and gets no new cookie.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	again, reissued, err := res.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve returning guest: %v", err)
	}
	if again.UserID != a.UserID || reissued != nil {
		t.Fatalf("returning guest changed identity: %+v %+v", again, reissued)
	}
}

func TestResolveIgnoresForeignCookieValue(t *testing.T) {
	res, _ := newResolver(t, "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "storyquest_guest_id", Value: "user-42"})

	a, cookie, err := res.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.UserID == "user-42" || cookie == nil {
		t.Fatalf("a non-guest cookie value must not be trusted, got %+v", a)
	}
}

func TestResolveBearerToken(t *testing.T) {
	res, _ := newResolver(t, "s3cret")
	token, err := res.IssueToken("user-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	a, cookie, err := res.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.IsGuest || a.UserID != "user-1" || cookie != nil {
		t.Fatalf("unexpected actor %+v cookie %+v", a, cookie)
	}
}

func TestResolveRejectsBadTokens(t *testing.T) {
	res, _ := newResolver(t, "s3cret")
	other, _ := newResolver(t, "other")
	forged, _ := other.IssueToken("user-1", time.Hour)

	res.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := res.IssueToken("user-1", time.Hour)
	res.now = time.Now

	for name, token := range map[string]string{"forged": forged, "expired": expired, "garbage": "abc.def.ghi"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			if _, _, err := res.Resolve(context.Background(), req); !errors.Is(err, entity.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	res, _ := newResolver(t, "s3cret")
	var seen entity.Actor
	h := res.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !seen.IsGuest || len(rec.Result().Cookies()) != 1 {
		t.Fatalf("guest request should set a cookie, actor %+v", seen)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer nope")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token should be 401, got %d", rec.Code)
	}
}
