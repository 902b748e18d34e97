// Package config provides user configuration management for castscan.
//
// This package manages a YAML configuration file holding discovery
// preferences (timeout, dedup policy, service type) and what castscan
// remembers about receivers it has seen (nickname, last address, last seen).
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/castscan/config.yaml or $HOME/.config/castscan/config.yaml
//   - macOS: $HOME/.config/castscan/config.yaml
//   - Windows: %LOCALAPPDATA%\castscan\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	opts, err := cfg.Preferences.LocatorOptions()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	locator := discovery.NewLocator(discovery.NewZeroconfBrowser(), opts...)
//
//	receivers, _ := locator.FindReceivers()
//	for _, r := range receivers {
//	    cfg.RecordReceiver(r)
//	}
//	if err := cfg.Save(""); err != nil {
//	    log.Fatal(err)
//	}
//
// Receivers are keyed by their "id" TXT value so a nickname survives DHCP
// address changes.
//
// # Thread Safety
//
// Save is serialized by a package mutex and writes atomically via rename.
// A *Config itself is not safe for concurrent mutation.
package config
