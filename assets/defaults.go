package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// DefaultGuardYAML contains the embedded default guard rules.
//
//go:embed defaults/guard.yaml
var DefaultGuardYAML []byte
