// Package output maps sequence flags onto physical relay outputs.
//
// A Mapping knows the channel count and the trigger polarity of the relay
// board. For every channel it writes trigger XOR (bit == 0) to a Sink, so an
// active channel is driven to the trigger level and an idle one to its
// opposite.
//
// Sinks:
//   - GPIOSink: Linux GPIO character device (go-gpiocdev)
//   - MQTTSink: network relay boards over MQTT
//   - Recorder: in-memory, used for the "log" driver and tests
//
// Usage:
//
//	sink, err := output.OpenGPIO("gpiochip0", []int{5, 6, 13, 19}, output.Low)
//	m := output.NewMapping(output.High, 4, sink)
//	err = m.Apply(0b0101)
package output
