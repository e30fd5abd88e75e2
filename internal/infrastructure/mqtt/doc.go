// Package mqtt connects the sequencer to an MQTT broker.
//
// A sequencer uses MQTT for three things:
//   - receiving setDefault/setSequence commands on relayseq/{device}/command
//   - publishing its retained status on relayseq/{device}/state
//   - optionally driving remote relays via relayseq/{device}/output/{channel}
//
// The connection carries a Last Will on relayseq/{device}/system/status so
// subscribers see the device go offline if it crashes.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Device.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().Command(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleCommand(payload)
//	    })
//
// TLS should be enabled (broker.tls) whenever the broker is not on localhost.
package mqtt
