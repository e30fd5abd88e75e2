package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/relay-sequencer/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host: "127.0.0.1",
			Port: 1883,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{Device: "porch"}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"command", topics.Command(), "relayseq/porch/command"},
		{"state", topics.State(), "relayseq/porch/state"},
		{"system status", topics.SystemStatus(), "relayseq/porch/system/status"},
		{"output", topics.Output(3), "relayseq/porch/output/3"},
		{"all outputs", topics.AllOutputs(), "relayseq/porch/output/+"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "seq", Password: "pw"}

	opts := buildClientOptions(cfg, "relayseq-porch")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "relayseq-porch" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "seq" || opts.Password != "pw" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set without broker.tls")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg, "x")

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS 1.2 minimum not configured")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig(), "relayseq-porch")
	configureLWT(opts, Topics{Device: "porch"}, "relayseq-porch")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Error("will must be enabled and retained")
	}
	if opts.WillTopic != "relayseq/porch/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var msg statusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if msg.Status != StatusOffline || msg.Reason != "unexpected_disconnect" || msg.ClientID != "relayseq-porch" {
		t.Errorf("will = %+v", msg)
	}
}

func TestStatusPayload_OmitsEmptyReason(t *testing.T) {
	var raw map[string]any
	if err := json.Unmarshal(statusPayload(StatusOnline, "c", ""), &raw); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if _, ok := raw["reason"]; ok {
		t.Error("online payload should have no reason")
	}
	if raw["status"] != StatusOnline || raw["timestamp"] == "" {
		t.Errorf("payload = %v", raw)
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{cfg: testConfig(), topics: Topics{Device: "porch"}}

	if c.IsConnected() {
		t.Fatal("IsConnected() = true for unconnected client")
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish", c.Publish("a", nil, 1, false), ErrNotConnected},
		{"publish no wait", c.PublishNoWait("a", nil, 1, true), ErrNotConnected},
		{"publish retained", c.PublishRetained("a", nil), ErrNotConnected},
		{"empty topic", c.Publish("", nil, 1, false), ErrInvalidTopic},
		{"bad qos", c.PublishNoWait("a", nil, 3, false), ErrInvalidQoS},
		{"large payload", c.Publish("a", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed},
		{"subscribe", c.Subscribe("a", 1, func(string, []byte) error { return nil }), ErrNotConnected},
		{"subscribe nil handler", c.Subscribe("a", 1, nil), ErrSubscribeFailed},
		{"health", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, tt.err, tt.want)
		}
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() = %v, want context.Canceled", err)
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestWrapHandler(t *testing.T) {
	c := &Client{}
	logger := &mockLogger{}
	c.SetLogger(logger)

	var got string
	ok := c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})
	ok(nil, fakeMessage{topic: "relayseq/porch/command", payload: []byte("{}")})
	if got != "relayseq/porch/command={}" {
		t.Errorf("handler saw %q", got)
	}

	failing := c.wrapHandler(func(string, []byte) error { return errors.New("bad command") })
	failing(nil, fakeMessage{topic: "t"})
	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one", logger.warns)
	}

	panicking := c.wrapHandler(func(string, []byte) error { panic("boom") })
	panicking(nil, fakeMessage{topic: "t"})
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one recovered panic", logger.errors)
	}
}
