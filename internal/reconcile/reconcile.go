// Package reconcile compares a profile's stored configuration with a
// snapshot read from the server's own configuration files.
package reconcile

import "arkwarden/internal/domain"

// Differs reports whether any field present in snap disagrees with cfg.
// Absent fields never count. The mod list is compared with surrounding
// whitespace trimmed.
func Differs(cfg domain.ServerConfig, snap *domain.ConfigSnapshot) bool {
	if snap == nil {
		return false
	}
	for _, f := range fields {
		if f.differ(&cfg, snap) {
			return true
		}
	}
	return false
}

// Diff returns the JSON names of the differing fields, in declaration order.
func Diff(cfg domain.ServerConfig, snap *domain.ConfigSnapshot) []string {
	if snap == nil {
		return nil
	}
	var names []string
	for _, f := range fields {
		if f.differ(&cfg, snap) {
			names = append(names, f.name)
		}
	}
	return names
}

// Merge returns a copy of cfg with every present snapshot field applied.
func Merge(cfg domain.ServerConfig, snap *domain.ConfigSnapshot) domain.ServerConfig {
	if snap == nil {
		return cfg
	}
	for _, f := range fields {
		f.apply(&cfg, snap)
	}
	return cfg
}
