// Package influxdb records playback history in InfluxDB v2.
//
// Every sequence change becomes one point in the "sequence_playback"
// measurement, tagged with the device, the sequence name and what caused the
// change. Dashboards can then show which pattern ran when.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePlayback("porch", influxdb.Playback{
//	    SequenceID: 3, Sequence: "Wave Double", SpeedMS: 1000, Source: "http",
//	})
//
// Writes are batched according to batch_size and flush_interval.
package influxdb
