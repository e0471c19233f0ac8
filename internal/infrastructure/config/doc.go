// Package config handles loading and validating gamepad-io configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GAMEPADIO_*)
//   - Validation of required fields, aggregated into a single error
//   - Default value handling
//
// Sensitive values (MQTT passwords, InfluxDB tokens) should be set via
// environment variables rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.API.Port)
package config
