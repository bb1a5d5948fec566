// Package config handles loading and validating GridPoint Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GRIDPOINT_* pattern)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (broker credentials) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Platform.Name)
package config
