// Package server implements the RPC server for the distributed lock manager system.
// It provides the adapter for handling RPC requests to the lock manager service,
// along with the core server implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for the lock manager operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - Flexible shard configuration, one independent lock manager per shard
//   - Optional Prometheus metrics endpoint
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests against a
//     lockmgr.ILockManager.
//
//   - NewLockManagerServerAdapter: Factory function creating an adapter for the
//     locking operations, translating RPC requests to lockmgr.ILockManager calls.
//     Protocol outcomes (lock not granted in time, id not held) travel as Ok=false
//     responses; only invalid arguments and internal errors use the Err field.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []uint64{100, 200},
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	  Transport: common.ServerTransportConf{
//	    Endpoint: "0.0.0.0:8080",
//	  },
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Each configured shard is backed by its own lock manager instance with its own
// expiry sweeper. Resources of different shards never contend with each other,
// so shards can be used to partition independent applications on one server.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	The Serve method is not thread-safe and should be called only once.
package server
