package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/relay-sequencer/internal/controller"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/config"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/database"
	"github.com/nerrad567/relay-sequencer/internal/infrastructure/logging"
	"github.com/nerrad567/relay-sequencer/internal/output"
	"github.com/nerrad567/relay-sequencer/internal/preferences"
	"github.com/nerrad567/relay-sequencer/internal/sequence"
	"github.com/nerrad567/relay-sequencer/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// testEnv is a running controller behind an API server.
type testEnv struct {
	srv      *Server
	handler  http.Handler
	defaults *preferences.PlayerDefaults
}

type testOptions struct {
	secret string
	mqtt   ConnectionReporter
}

// fakeConn is a ConnectionReporter with a fixed result.
type fakeConn struct {
	connected bool
	err       error
}

func (f fakeConn) HealthCheck(context.Context) error { return f.err }
func (f fakeConn) IsConnected() bool                 { return f.connected }

// setupTestDB opens a migrated in-memory database.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// newTestEnv starts a controller over an 8-channel recorder and wraps it in a
// server. Everything stops when the test ends.
func newTestEnv(t *testing.T, opts testOptions) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	defaults := preferences.NewPlayerDefaults(preferences.NewSQLiteRepository(db.DB))

	ctrl, err := controller.New(context.Background(), controller.Options{
		Catalog:      sequence.NewCatalog(8),
		Output:       output.NewMapping(output.High, 8, output.NewRecorder(8)),
		Store:        defaults,
		PollInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("controller.New() error = %v", err)
	}

	deps := Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security:   config.SecurityConfig{JWT: config.JWTConfig{Secret: opts.secret}},
		Logger:     logging.Discard(),
		Controller: ctrl,
		DB:         db,
		Version:    "test",
	}
	if opts.mqtt != nil {
		deps.MQTT = opts.mqtt
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx) //nolint:errcheck // Run only fails when already running
	}()
	go srv.hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &testEnv{srv: srv, handler: srv.Handler(), defaults: defaults}
}

func (e *testEnv) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

type statusBody struct {
	OK         bool `json:"ok"`
	SequenceID int  `json:"sequenceID"`
	Speed      int  `json:"speed"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() without logger: expected error")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without controller: expected error")
	}
}

func TestServe_ReturnsListenerErrors(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer busy.Close() //nolint:errcheck // Test cleanup
	busyPort := busy.Addr().(*net.TCPAddr).Port

	missing := filepath.Join(t.TempDir(), "missing.pem")

	tests := []struct {
		name   string
		mutate func(*config.APIConfig)
	}{
		{
			name:   "port in use",
			mutate: func(c *config.APIConfig) { c.Port = busyPort },
		},
		{
			name: "missing TLS files",
			mutate: func(c *config.APIConfig) {
				c.Port = 0
				c.TLS = config.TLSConfig{Enabled: true, CertFile: missing, KeyFile: missing}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testOptions{})
			tt.mutate(&env.srv.cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- env.srv.Serve(ctx) }()

			select {
			case err := <-errCh:
				if err == nil {
					t.Fatal("Serve() = nil, want listener error")
				}
				if ctx.Err() != nil {
					t.Errorf("Serve() returned only after the context ended: %v", err)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("Serve() did not return after the listener failed")
			}
		})
	}
}

func TestHandleStatus_Defaults(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	w := env.do(t, http.MethodGet, "/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /status: status = %d, want 200", w.Code)
	}
	got := decode[statusBody](t, w)
	if got.SequenceID != 1 || got.Speed != 1000 {
		t.Errorf("GET /status = %+v, want sequence 1 at 1000ms", got)
	}
}

func TestHandleRPC_SetSequence(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	tests := []struct {
		name   string
		body   string
		wantID int
		wantMS int
	}{
		{"both fields", `{"command":"setSequence","sequenceID":3,"speed":1500}`, 3, 2000},
		{"speed only keeps sequence", `{"command":"setSequence","speed":400}`, 3, 500},
		{"sequence only keeps speed", `{"command":"setSequence","sequenceID":6}`, 6, 500},
		{"out of range is clamped", `{"command":"setSequence","sequenceID":99,"speed":99999}`, 7, 2000},
		{"negative is clamped", `{"command":"setSequence","sequenceID":-4}`, 0, 2000},
		{"extra fields ignored", `{"command":"setSequence","sequenceID":2,"colour":"red"}`, 2, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/rpc", tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("POST /rpc: status = %d, body %q", w.Code, w.Body.String())
			}
			got := decode[statusBody](t, w)
			if !got.OK || got.SequenceID != tt.wantID || got.Speed != tt.wantMS {
				t.Errorf("POST /rpc = %+v, want ok %d/%d", got, tt.wantID, tt.wantMS)
			}

			st := decode[statusBody](t, env.do(t, http.MethodGet, "/status", "", nil))
			if st.SequenceID != tt.wantID || st.Speed != tt.wantMS {
				t.Errorf("GET /status after command = %+v", st)
			}
		})
	}
}

func TestHandleRPC_SetDefault(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	w := env.do(t, http.MethodPost, "/rpc", `{"command":"setDefault","sequenceID":42,"speed":-7}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /rpc: status = %d, body %q", w.Code, w.Body.String())
	}
	got := decode[statusBody](t, w)
	if !got.OK || got.SequenceID != 7 || got.Speed != 500 {
		t.Errorf("setDefault = %+v, want ok 7/500", got)
	}

	stored, err := env.defaults.LoadDefaults(context.Background())
	if err != nil {
		t.Fatalf("LoadDefaults() error = %v", err)
	}
	if stored.SequenceID != 7 || stored.Speed != 500 {
		t.Errorf("stored defaults = %+v, want 7/500", stored)
	}

	// Playback is unchanged.
	st := decode[statusBody](t, env.do(t, http.MethodGet, "/status", "", nil))
	if st.SequenceID != 1 || st.Speed != 1000 {
		t.Errorf("GET /status after setDefault = %+v, want 1/1000", st)
	}
}

func TestHandleRPC_Rejections(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"no command", `{"sequenceID":1}`, http.StatusUnprocessableEntity, "Unprocessable Entity"},
		{"null body", `null`, http.StatusUnprocessableEntity, "Unprocessable Entity"},
		{"unknown command", `{"command":"reboot"}`, http.StatusUnprocessableEntity, "Invalid command: reboot"},
		{"setDefault without sequence", `{"command":"setDefault","speed":500}`, http.StatusUnprocessableEntity, "Missing required field: sequenceID"},
		{"setDefault without speed", `{"command":"setDefault","sequenceID":2}`, http.StatusUnprocessableEntity, "Missing required field: speed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/rpc", tt.body, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Content-Type = %q, want text/plain", ct)
			}
		})
	}

	// Nothing was applied.
	st := decode[statusBody](t, env.do(t, http.MethodGet, "/status", "", nil))
	if st.SequenceID != 1 {
		t.Errorf("sequence changed to %d by rejected commands", st.SequenceID)
	}
}

func TestHandleRPC_MalformedBody(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	for _, body := range []string{"not json", `["setSequence"]`, `{"command":`} {
		w := env.do(t, http.MethodPost, "/rpc", body, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("POST /rpc %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestHandleRPC_LenientNumbers(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	tests := []struct {
		name   string
		body   string
		wantID int
		wantMS int
	}{
		{"fraction truncates", `{"command":"setSequence","sequenceID":2.7,"speed":499.9}`, 2, 500},
		{"numeric strings", `{"command":"setSequence","sequenceID":"3","speed":" 2000 "}`, 3, 2000},
		{"null keeps current", `{"command":"setSequence","sequenceID":null,"speed":1000}`, 3, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/rpc", tt.body, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("POST /rpc: status = %d, body %q", w.Code, w.Body.String())
			}
			got := decode[statusBody](t, w)
			if got.SequenceID != tt.wantID || got.Speed != tt.wantMS {
				t.Errorf("POST /rpc = %+v, want %d/%d", got, tt.wantID, tt.wantMS)
			}
		})
	}
}

func TestHandleRPC_BadFieldNamesField(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	tests := []struct {
		body  string
		field string
	}{
		{`{"command":"setSequence","sequenceID":"three"}`, "sequenceID"},
		{`{"command":"setSequence","speed":true}`, "speed"},
		{`{"command":42}`, "command"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/rpc", tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("POST /rpc %s: status = %d, want 400", tt.body, w.Code)
			}
			got := decode[Error](t, w)
			if !strings.Contains(got.Message, "field "+tt.field) {
				t.Errorf("message = %q, want it to name %s", got.Message, tt.field)
			}
		})
	}
}

func signedToken(t *testing.T, secret string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "panel",
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, testOptions{secret: testSecret})
	body := `{"command":"setSequence","sequenceID":4}`

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signedToken(t, "another-secret-that-is-long-enough!!", time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + signedToken(t, testSecret, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"valid", "Bearer " + signedToken(t, testSecret, time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			w := env.do(t, http.MethodPost, "/rpc", body, h)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %q)", w.Code, tt.want, w.Body.String())
			}
		})
	}

	// Reads stay open.
	if w := env.do(t, http.MethodGet, "/status", "", nil); w.Code != http.StatusOK {
		t.Errorf("GET /status with auth enabled: status = %d, want 200", w.Code)
	}
}

func TestHandleListSequences(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	w := env.do(t, http.MethodGet, "/api/v1/sequences", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	got := decode[struct {
		Sequences []sequenceInfo `json:"sequences"`
		Speeds    []speedInfo    `json:"speeds"`
		Count     int            `json:"count"`
	}](t, w)

	if got.Count != 8 || len(got.Sequences) != 8 {
		t.Fatalf("count = %d, sequences = %d, want 8", got.Count, len(got.Sequences))
	}
	if got.Sequences[0] != (sequenceInfo{ID: 0, Name: "Chase Single"}) {
		t.Errorf("first sequence = %+v", got.Sequences[0])
	}
	if got.Sequences[7] != (sequenceInfo{ID: 7, Name: "ON"}) {
		t.Errorf("last sequence = %+v", got.Sequences[7])
	}
	if len(got.Speeds) != 3 || got.Speeds[0] != (speedInfo{Name: "Slow", MS: 2000}) {
		t.Errorf("speeds = %+v", got.Speeds)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		env := newTestEnv(t, testOptions{mqtt: fakeConn{connected: true}})
		w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		got := decode[struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}](t, w)
		if got.Status != "ok" || got.Checks["database"] != "ok" || got.Checks["mqtt"] != "ok" {
			t.Errorf("health = %+v", got)
		}
	})

	t.Run("mqtt down does not degrade", func(t *testing.T) {
		env := newTestEnv(t, testOptions{mqtt: fakeConn{err: errors.New("broker unreachable")}})
		w := env.do(t, http.MethodGet, "/api/v1/health", "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), "broker unreachable") {
			t.Errorf("health body %q missing mqtt error", w.Body.String())
		}
	})
}

func TestHandleMetrics(t *testing.T) {
	env := newTestEnv(t, testOptions{mqtt: fakeConn{connected: true}})

	w := env.do(t, http.MethodGet, "/api/v1/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	got := decode[SystemMetrics](t, w)
	if got.Version != "test" {
		t.Errorf("Version = %q", got.Version)
	}
	if got.Runtime.Goroutines == 0 {
		t.Error("Runtime.Goroutines = 0")
	}
	if !got.MQTT.Enabled || !got.MQTT.Connected {
		t.Errorf("MQTT = %+v, want enabled and connected", got.MQTT)
	}
	if got.InfluxDB.Enabled {
		t.Error("InfluxDB reported enabled without a client")
	}
	if got.Database == nil {
		t.Error("Database metrics missing")
	}
	if got.Player == nil || got.Player.Sequence != "Chase Double" || got.Player.SpeedMS != 1000 {
		t.Errorf("Player = %+v, want Chase Double at 1000ms", got.Player)
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	w := env.do(t, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /: status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"Chase Single","Chase Double"`) {
		t.Error("GET /: sequence list not injected")
	}

	if w := env.do(t, http.MethodGet, "/static/script.js", "", nil); w.Code != http.StatusOK {
		t.Errorf("GET /static/script.js: status = %d, want 200", w.Code)
	}
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	w := env.do(t, http.MethodGet, "/status", "", http.Header{"X-Request-Id": {"abc-123"}})
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want echoed abc-123", got)
	}

	w = env.do(t, http.MethodGet, "/status", "", nil)
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", got)
	}

	w = env.do(t, http.MethodOptions, "/rpc", "", http.Header{"Origin": {"http://panel.local"}})
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestWebSocket_BroadcastsStatusChanges(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap struct {
		Type      string              `json:"type"`
		EventType string              `json:"event_type"`
		Payload   controller.Snapshot `json:"payload"`
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if snap.Type != WSTypeSnapshot || snap.EventType != ChannelStatus {
		t.Fatalf("first message = %s/%s, want snapshot/%s", snap.Type, snap.EventType, ChannelStatus)
	}
	if snap.Payload.Status.SequenceID != 1 || snap.Payload.Name != "Chase Double" {
		t.Errorf("snapshot = %+v, want Chase Double", snap.Payload)
	}

	resp, err := http.Post(ts.URL+"/rpc", "application/json",
		strings.NewReader(`{"command":"setSequence","sequenceID":5,"speed":500}`))
	if err != nil {
		t.Fatalf("POST /rpc error = %v", err)
	}
	resp.Body.Close()

	for {
		var msg struct {
			Type      string           `json:"type"`
			EventType string           `json:"event_type"`
			Payload   controller.Event `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.Type != WSTypeEvent || msg.EventType != ChannelStatus || msg.Payload.Source != controller.SourceHTTP {
			continue
		}
		if msg.Payload.Status.SequenceID != 5 || msg.Payload.Status.Speed.Milliseconds() != 500 {
			t.Errorf("event status = %+v, want 5/500", msg.Payload.Status)
		}
		if msg.Payload.Name != "Alternate" {
			t.Errorf("event sequence = %q, want Alternate", msg.Payload.Name)
		}
		return
	}
}

func TestWebSocket_AnswersPing(t *testing.T) {
	env := newTestEnv(t, testOptions{})
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "7"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for pong: %v", err)
		}
		if msg.Type == WSTypePong {
			if msg.ID != "7" {
				t.Errorf("pong id = %q, want 7", msg.ID)
			}
			return
		}
	}
}
