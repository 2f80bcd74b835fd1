// Package config provides centralized configuration management for the
// SceneMCP runtime, loading a JSON configuration file and filling in
// sensible defaults for fields the operator leaves empty.
package config
