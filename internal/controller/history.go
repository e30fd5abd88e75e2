package controller

import "github.com/nerrad567/relay-sequencer/internal/infrastructure/influxdb"

// PlaybackWriter records sequence changes. Satisfied by *influxdb.Client.
type PlaybackWriter interface {
	WritePlayback(device string, p influxdb.Playback)
}

// HistoryObserver returns an observer that records every change for device.
func HistoryObserver(w PlaybackWriter, device string) func(Event) {
	return func(ev Event) {
		w.WritePlayback(device, influxdb.Playback{
			SequenceID: ev.Status.SequenceID,
			Sequence:   ev.Name,
			SpeedMS:    ev.Status.Speed.Milliseconds(),
			Source:     string(ev.Source),
		})
	}
}
