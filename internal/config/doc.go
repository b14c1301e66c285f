// Package config provides configuration loading and validation for the
// Livewire advertisement listener. It handles YAML-based configuration
// with struct validation and sensible defaults for the well-known
// advertisement multicast endpoint.
package config
