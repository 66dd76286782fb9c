// Package config handles loading and validating the RENAC bridge
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files (optional)
//   - Overriding with environment variables (the original deployment's names)
//   - Resolution of legacy single-address and multi-address device lists
//   - Validation of required fields and default value handling
//
// Security Considerations:
//   - Broker credentials should be set via environment variables
//   - A config file, if used, should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	addrs := cfg.Devices.Inverter.Resolve()
package config
