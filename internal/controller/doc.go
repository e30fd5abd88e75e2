// Package controller runs the playback control loop and accepts commands.
//
// The Controller is the only owner of the Player. Run polls Player.Tick on a
// short ticker and executes commands from the HTTP API and MQTT bridge on
// the same goroutine, so the Player needs no locks:
//
//	HTTP /rpc ──┐
//	MQTT cmd ───┼──► requests ──► control loop ──► Player.Tick ──► outputs
//	            │                      │
//	            │                      └──► events ──► observers
//	            │                                       (WebSocket, MQTT state,
//	            │                                        InfluxDB history)
//
// Commands share one JSON shape (see Command). Execute returns a
// *RejectError for commands that cannot be acted on, which the API turns
// into a 422 response.
package controller
