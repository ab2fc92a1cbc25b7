// Package config loads and validates the playback daemon configuration.
//
// Values come from hard-coded defaults, then the YAML file, then PLAYBACK_*
// environment variables. Secrets (JWT secret, MQTT password, InfluxDB token)
// should be supplied through the environment and the file kept at 0600.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	hz := cfg.Video.RefreshRate
package config
