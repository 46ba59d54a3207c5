package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager reads and writes cookie based sessions backed by Redis. The
// identity layer (login, password reset) lives outside this service; sessions
// are created there and consumed here to recover the user and their selected
// practice.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data.
type Session struct {
	ID         string
	userID     int64
	practiceID int64
	isNew      bool
	dirty      bool
	destroyed  bool
}

// ErrSessionStoreUnavailable reports that a session change could not be
// persisted because the backing store is offline.
var ErrSessionStoreUnavailable = errors.New("session store unavailable")

type sessionPayload struct {
	UserID     string `json:"user_id"`
	PracticeID string `json:"practice_id"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load loads the session referenced by the request cookie, or creates a fresh
// anonymous session when none exists.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	// Without a session store every request is anonymous; the cookie ID is
	// kept so the session survives once Redis comes back.
	if sm.client == nil {
		sess := sm.newSession()
		sess.ID = cookie.Value
		return sess, nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			sess := sm.newSession()
			sess.ID = cookie.Value
			return sess, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := &Session{ID: cookie.Value}
	sess.userID, _ = strconv.ParseInt(stored.UserID, 10, 64)
	sess.practiceID, _ = strconv.ParseInt(stored.PracticeID, 10, 64)
	return sess, nil
}

// Commit persists session changes and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if sm.client != nil {
			if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.dirty {
		if sm.client == nil {
			return ErrSessionStoreUnavailable
		}
		payload := sessionPayload{
			UserID:     strconv.FormatInt(sess.userID, 10),
			PracticeID: strconv.FormatInt(sess.practiceID, 10),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
	}

	if sess.ID != "" && !sess.isNew {
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
			Expires:  time.Now().Add(sm.ttl),
		})
	}

	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	sess.Destroy()
}

// Destroy marks the session for deletion on the next commit.
func (s *Session) Destroy() {
	if s == nil {
		return
	}
	s.destroyed = true
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// Principal returns the authenticated principal carried by this session. The
// second return is false for anonymous sessions.
func (s *Session) Principal() (Principal, bool) {
	if s == nil || s.userID == 0 {
		return Principal{}, false
	}
	return Principal{UserID: s.userID, PracticeID: s.practiceID}, true
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id int64) {
	s.userID = id
	s.isNew = false
	s.dirty = true
}

// SetPractice records the caller's selected practice.
func (s *Session) SetPractice(id int64) {
	s.practiceID = id
	s.dirty = true
}

// Practice returns the selected practice, zero when none is selected.
func (s *Session) Practice() int64 {
	if s == nil {
		return 0
	}
	return s.practiceID
}

func (sm *SessionManager) newSession() *Session {
	return &Session{ID: sm.generateSessionID(), isNew: true}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
