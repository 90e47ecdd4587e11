// Package config defines the device-core settings file and provides
// helpers to load, validate and save it in YAML format.
//
// Validate fills defaults for every optional field, so a minimal file only
// needs the transport URL.
package config
