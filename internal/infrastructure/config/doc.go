// Package config loads and validates relay sequencer configuration.
//
// Configuration comes from three layers, later ones winning:
//   - Hardcoded defaults (Default)
//   - A YAML file
//   - RELAYSEQ_* environment variables
//
// Secrets (MQTT password, InfluxDB token, JWT secret) should be supplied via
// the environment rather than the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Outputs.Channels)
package config
