package shared

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionFixture(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "clinicore_session", time.Hour, false)
}

func TestLoadWithoutCookieCreatesAnonymousSession(t *testing.T) {
	sm := newSessionFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected generated session ID")
	}
	if _, ok := sess.Principal(); ok {
		t.Fatal("anonymous session must not carry a principal")
	}
}

func TestCommitThenReloadRoundTripsPrincipal(t *testing.T) {
	sm := newSessionFixture(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser(7)
	sess.SetPractice(3)

	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	reloaded, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	principal, ok := reloaded.Principal()
	if !ok {
		t.Fatal("expected authenticated principal after reload")
	}
	if principal.UserID != 7 || principal.PracticeID != 3 {
		t.Fatalf("principal = %+v, want user 7 practice 3", principal)
	}
}

func TestDestroyClearsSessionAndCookie(t *testing.T) {
	sm := newSessionFixture(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser(7)
	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := rec.Result().Cookies()[0]

	sess.Destroy()
	rec = httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Fatalf("cookies = %+v, want expiring cookie", cleared)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	reloaded, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reloaded.Principal(); ok {
		t.Fatal("destroyed session still resolves a principal")
	}
}

func TestNilClientLoadsAnonymousSession(t *testing.T) {
	sm := NewSessionManager(nil, "clinicore_session", time.Hour, false)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clinicore_session", Value: "abc"})
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.ID != "abc" {
		t.Fatalf("session ID = %q, want reuse of presented ID", sess.ID)
	}
	if _, ok := sess.Principal(); ok {
		t.Fatal("session without a store must stay anonymous")
	}

	if err := sm.Commit(ctx, httptest.NewRecorder(), sess); err != nil {
		t.Fatalf("commit clean session: %v", err)
	}

	sess.SetUser(7)
	if err := sm.Commit(ctx, httptest.NewRecorder(), sess); !errors.Is(err, ErrSessionStoreUnavailable) {
		t.Fatalf("commit dirty session: err = %v, want ErrSessionStoreUnavailable", err)
	}

	sess.Destroy()
	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Fatalf("cookies = %+v, want expiring cookie", cleared)
	}
}

func TestStaleCookieFallsBackToAnonymous(t *testing.T) {
	sm := newSessionFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clinicore_session", Value: "gone"})

	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.ID != "gone" {
		t.Fatalf("session ID = %q, want reuse of presented ID", sess.ID)
	}
	if _, ok := sess.Principal(); ok {
		t.Fatal("stale cookie must not authenticate")
	}
}
