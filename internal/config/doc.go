// Package config loads bridge configuration.
//
// Values come from a YAML file with ${VAR} expansion, then AGP_*
// environment overrides, then defaults for anything still unset.
package config
