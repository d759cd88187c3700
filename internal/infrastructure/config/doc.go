// Package config loads and validates the IR climate service configuration.
//
// Loading order is defaults, then the YAML file, then IRCLIMATE_*
// environment variables. Validate collects every problem into one error so
// an operator sees them all at once.
//
// Secrets (MQTT password, InfluxDB token) should come from the environment.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Climate.ConfigFile)
//
// The device table itself lives in a separate file (climate.config_file),
// loaded by the IR bridge.
package config
