// Package common provides core data structures and utilities shared across
// the distributed lock manager system. It defines fundamental types,
// configuration structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for inter-component communication
//   - Configuration structures for client and server components
//   - Custom logging implementation with consistent formatting
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between components,
//     with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating various request and response messages.
//     Durations travel as uint64 microseconds on the wire.
//
//   - MessageType: Enumeration defining all supported operation types in the
//     system, covering the lock operations and control messages.
//
//   - ServerConfig: Configuration for server nodes, including hosted shards,
//     lock manager parameters, network configuration, and observability settings.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation with consistent formatting across
//     the application.
package common
