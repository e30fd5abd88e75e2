package mqtt

import "fmt"

// TopicPrefix is the root of every topic the sequencer uses.
const TopicPrefix = "relayseq"

// Topics builds the MQTT topics for one sequencer device.
//
//	topics := mqtt.Topics{Device: "porch"}
//	topics.Command()   // relayseq/porch/command
//	topics.Output(3)   // relayseq/porch/output/3
type Topics struct {
	Device string
}

func (t Topics) base() string {
	return TopicPrefix + "/" + t.Device
}

// Command is where setDefault/setSequence requests arrive.
//
// Example: relayseq/porch/command
func (t Topics) Command() string {
	return t.base() + "/command"
}

// State carries the retained player status after every change.
//
// Example: relayseq/porch/state
func (t Topics) State() string {
	return t.base() + "/state"
}

// SystemStatus carries the retained online/offline status, including the
// broker-published Last Will.
//
// Example: relayseq/porch/system/status
func (t Topics) SystemStatus() string {
	return t.base() + "/system/status"
}

// Output carries the retained level of one relay channel when outputs are
// driven over MQTT.
//
// Example: relayseq/porch/output/3
func (t Topics) Output(channel int) string {
	return fmt.Sprintf("%s/output/%d", t.base(), channel)
}

// AllOutputs matches every channel topic of the device.
//
// Example: relayseq/porch/output/+
func (t Topics) AllOutputs() string {
	return t.base() + "/output/+"
}
