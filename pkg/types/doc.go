// Package types defines the core types and interfaces for the orchestrator kit.
// It includes the provider contract, the standardized result value, request and
// configuration formats, and the error taxonomy shared by every component.
package types
