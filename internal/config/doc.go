// Package config loads the relay settings from the environment, with an
// optional .env file, and normalizes them.
package config
