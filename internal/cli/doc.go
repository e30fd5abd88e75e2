// Package cli implements the relayseq command line.
//
//	relayseq [serve]            run the sequencer (default)
//	relayseq sequences          list the sequence catalog
//	relayseq preview <id>       render the first steps of a sequence
//	relayseq version            print build information
//
// serve wires configuration, storage, outputs, the controller and the HTTP
// and MQTT front ends together and supervises them until the context ends.
package cli
