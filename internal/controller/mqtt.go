package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/relay-sequencer/internal/infrastructure/mqtt"
)

// commandTimeout bounds how long an MQTT command may wait for the control loop.
const commandTimeout = 5 * time.Second

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	PublishNoWait(topic string, payload []byte, qos byte, retained bool) error
	Topics() mqtt.Topics
	QoS() byte
}

// stateMessage is the retained payload on the state topic.
type stateMessage struct {
	SequenceID int    `json:"sequenceID"`
	Speed      int    `json:"speed"`
	Sequence   string `json:"sequence"`
	Source     Source `json:"source"`
	Timestamp  string `json:"timestamp"`
}

// MQTTBridge accepts commands from the broker and publishes status changes.
type MQTTBridge struct {
	ctrl   *Controller
	client MQTTClient
	logger Logger

	last   *Event
	lastMu sync.Mutex
}

// NewMQTTBridge creates a bridge. Call Start before the controller runs.
func NewMQTTBridge(ctrl *Controller, client MQTTClient, logger Logger) *MQTTBridge {
	return &MQTTBridge{ctrl: ctrl, client: client, logger: logger}
}

// Start subscribes to the command topic and registers the state publisher.
func (b *MQTTBridge) Start() error {
	if err := b.client.Subscribe(b.client.Topics().Command(), b.client.QoS(), b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	b.ctrl.Observe(b.publishState)
	return nil
}

// Republish sends the last known state again. Hook it to the client's
// OnConnect so a restarted broker gets the retained state back.
func (b *MQTTBridge) Republish() {
	b.lastMu.Lock()
	last := b.last
	b.lastMu.Unlock()

	if last != nil {
		b.publish(*last)
	}
}

func (b *MQTTBridge) handleCommand(_ string, payload []byte) error {
	cmd, err := ParseCommand(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := b.ctrl.Execute(ctx, cmd, SourceMQTT)
	if err != nil {
		var rej *RejectError
		if errors.As(err, &rej) {
			return fmt.Errorf("command rejected: %w", err)
		}
		return fmt.Errorf("executing command: %w", err)
	}

	if b.logger != nil {
		b.logger.Info("mqtt command applied",
			"command", *cmd.Command,
			"sequence_id", res.SequenceID,
			"speed_ms", res.Speed,
		)
	}
	return nil
}

func (b *MQTTBridge) publishState(ev Event) {
	b.lastMu.Lock()
	b.last = &ev
	b.lastMu.Unlock()

	b.publish(ev)
}

func (b *MQTTBridge) publish(ev Event) {
	//nolint:errchkjson // Plain fields always marshal
	payload, _ := json.Marshal(stateMessage{
		SequenceID: ev.Status.SequenceID,
		Speed:      ev.Status.Speed.Milliseconds(),
		Sequence:   ev.Name,
		Source:     ev.Source,
		Timestamp:  ev.At.Format(time.RFC3339),
	})

	if err := b.client.PublishNoWait(b.client.Topics().State(), payload, b.client.QoS(), true); err != nil && b.logger != nil {
		b.logger.Warn("publishing state failed", "error", err)
	}
}
