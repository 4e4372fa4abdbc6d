// Package config provides loading and environment overlay for geyserd
// configuration. It exposes a Default() baseline, JSON/YAML file loading and
// GEYSER_* environment overrides.
//
// Example:
//
//	cfg, err := config.Load("/etc/geyserd.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	rt, _ := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
//	defer rt.Close()
package config
