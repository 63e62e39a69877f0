// Package adapters contains the building blocks for provider backends:
// the Base identity embedded by every adapter, typed access to the
// settings map from the configuration document, a static adapter for
// tests and local development, and a generic HTTP API adapter carrying
// the transport concerns (auth, rate limiting, status mapping) that
// concrete vendor adapters share.
package adapters
