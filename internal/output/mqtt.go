package output

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Publisher is the MQTT operation the MQTT sink needs. It must not wait for
// broker acknowledgement. Satisfied by *mqtt.Client.
type Publisher interface {
	PublishNoWait(topic string, payload []byte, qos byte, retained bool) error
}

// channelMessage is the payload published for a channel level change.
type channelMessage struct {
	Channel int    `json:"channel"`
	Level   string `json:"level"`
}

// MQTTSink publishes channel levels to per-channel MQTT topics for relay
// boards that are driven over the network.
//
// Only changes are published, retained, so a board that reconnects picks up
// the current level from the broker. Publishing never waits for the broker.
//
// Thread Safety: All methods are safe for concurrent use.
type MQTTSink struct {
	pub   Publisher
	topic func(channel int) string
	qos   byte

	mu   sync.Mutex
	last []Level
	sent []bool
}

// NewMQTTSink creates a sink for channels outputs.
//
// Parameters:
//   - pub: MQTT publisher
//   - channels: Number of outputs
//   - qos: QoS level for level messages
//   - topic: Builds the topic for a channel (e.g., Topics.Output)
//
// Returns:
//   - *MQTTSink: Sink ready for use
func NewMQTTSink(pub Publisher, channels int, qos byte, topic func(channel int) string) *MQTTSink {
	channels = max(channels, 0)
	return &MQTTSink{
		pub:   pub,
		topic: topic,
		qos:   qos,
		last:  make([]Level, channels),
		sent:  make([]bool, channels),
	}
}

// Write implements Sink.
func (s *MQTTSink) Write(channel int, level Level) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel < 0 || channel >= len(s.last) {
		return ErrChannelRange
	}
	if s.sent[channel] && s.last[channel] == level {
		return nil
	}

	payload, err := json.Marshal(channelMessage{Channel: channel, Level: level.String()})
	if err != nil {
		return fmt.Errorf("encoding channel message: %w", err)
	}
	if err := s.pub.PublishNoWait(s.topic(channel), payload, s.qos, true); err != nil {
		return err
	}

	s.last[channel] = level
	s.sent[channel] = true
	return nil
}
