package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/backend"
	"github.com/Skotchmaster/storefront/internal/guard"
	"github.com/Skotchmaster/storefront/internal/kvstore"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/profile"
	"github.com/Skotchmaster/storefront/internal/session"
)

var identitySecret = []byte("handlers-test-secret")

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

// fakeBackend serves the backend REST API from in-memory fixtures.
type fakeBackend struct {
	mu       sync.Mutex
	roles    map[string]string
	status   map[string]int
	hold     map[string]chan struct{}
	requests []string
}

// block makes requests to path wait until the returned func is called.
func (f *fakeBackend) block(path string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.hold[path] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeBackend) setStatus(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = code
}

func (f *fakeBackend) hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r == path {
			n++
		}
	}
	return n
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	code, forced := f.status[r.URL.Path]
	hold := f.hold[r.URL.Path]
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	if forced {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(r.URL.Path, "/users/"):
		uid := strings.TrimPrefix(r.URL.Path, "/users/")
		f.mu.Lock()
		role := f.roles[uid]
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"id": uid, "role": role, "name": "From Backend"})
	case r.URL.Path == "/products":
		_, _ = w.Write([]byte(`{"products":[{"_id":"p1","name":"Mug","price":"4.50"}],"total":1,"page":1,"totalPages":1}`))
	case r.URL.Path == "/products/p1":
		_, _ = w.Write([]byte(`{"_id":"p1","name":"Mug","price":"4.50"}`))
	case strings.HasPrefix(r.URL.Path, "/products/"):
		w.WriteHeader(http.StatusNotFound)
	case r.URL.Path == "/payments/intent":
		_, _ = w.Write([]byte(`{"clientSecret":"pi_secret"}`))
	case r.URL.Path == "/orders" && r.Method == http.MethodPost:
		var o backend.Order
		_ = json.NewDecoder(r.Body).Decode(&o)
		o.ID = "ord-1"
		o.Status = "paid"
		_ = json.NewEncoder(w).Encode(o)
	case r.URL.Path == "/orders":
		_, _ = w.Write([]byte(`[{"_id":"ord-1","items":[],"total":"9.00","paymentId":"pay_1"}]`))
	case r.URL.Path == "/vendors/apply":
		_, _ = w.Write([]byte(`{"_id":"app-1","status":"pending"}`))
	case r.URL.Path == "/ads":
		_, _ = w.Write([]byte(`{"_id":"ad-1","status":"pending"}`))
	case r.URL.Path == "/vendors/analytics":
		_, _ = w.Write([]byte(`{"revenue":"120.00","orderCount":4,"topProducts":[]}`))
	case r.URL.Path == "/admin/overview":
		_, _ = w.Write([]byte(`{"users":10,"vendors":2,"orders":4,"revenue":"120.00"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	t        *testing.T
	e        *echo.Echo
	h        *Handler
	profiles *profile.Registry
	db       *gorm.DB
	backend  *fakeBackend
	client   *backend.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fb := &fakeBackend{roles: map[string]string{}, status: map[string]int{}, hold: map[string]chan struct{}{}}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	db := InitTestDB(t)
	client := backend.NewClient(srv.URL)
	reg := profile.NewRegistry(profile.Options{
		Stores:   func(id string) kvstore.Store { return kvstore.NewGorm(db, id) },
		Fetcher:  client,
		Verifier: session.NewIdentityVerifier(identitySecret),
		Debounce: 10 * time.Millisecond,
	})
	t.Cleanup(reg.Shutdown)

	h := New(reg, client, guard.DefaultPaths(), false)
	h.SessionWait = 2 * time.Second
	return &testEnv{t: t, e: echo.New(), h: h, profiles: reg, db: db, backend: fb, client: client}
}

func identityToken(t *testing.T, uid string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.IdentityClaims{
		Name: "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(identitySecret)
	require.NoError(t, err)
	return raw
}

type request struct {
	method string
	path   string
	body   any
	sid    string
	params map[string]string
}

// do runs fn behind the profile middleware the way the router mounts it.
func (env *testEnv) do(r request, fn echo.HandlerFunc) *httptest.ResponseRecorder {
	env.t.Helper()
	var body *bytes.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		require.NoError(env.t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if r.sid != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: r.sid})
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if len(r.params) > 0 {
		var names, values []string
		for k, v := range r.params {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	require.NoError(env.t, env.h.WithProfile(fn)(c))
	return rec
}

// signIn opens a profile signed in as uid with the given backend role.
func (env *testEnv) signIn(uid, role string) string {
	env.t.Helper()
	env.backend.mu.Lock()
	env.backend.roles[uid] = role
	env.backend.mu.Unlock()

	sid := newSID()
	rec := env.do(request{method: http.MethodPost, path: "/api/v1/session", sid: sid, body: map[string]string{"token": identityToken(env.t, uid)}}, env.h.SignIn)
	require.Equal(env.t, http.StatusOK, rec.Code, rec.Body.String())
	return sid
}

func newSID() string { return uuid.NewString() }

type envelope struct {
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Notices []json.RawMessage `json:"notices"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func noticeMessages(t *testing.T, env envelope) []string {
	t.Helper()
	out := make([]string, 0, len(env.Notices))
	for _, raw := range env.Notices {
		var n struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(raw, &n))
		out = append(out, n.Message)
	}
	return out
}
