// Package client implements the RPC client for the distributed lock manager system.
// It provides an implementation of the lockmgr.ILockManager interface that
// communicates with remote servers via RPC.
//
// The package focuses on:
//   - Transparent RPC access to a remote lock manager
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between RPC and domain errors
//
// Key Components:
//
//   - NewRPCLockMgr: Factory function that creates a client implementing the
//     lockmgr.ILockManager interface. This client forwards all operations to
//     remote servers via the configured transport layer. Ok=false responses are
//     converted back to the typed errors of the lockmgr package, so code written
//     against a local manager works unchanged against a remote one.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConf{
//	    Endpoints:              []string{"localhost:5000"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	// Create a lock manager client
//	locks, _ := client.NewRPCLockMgr(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//
//	// Use the lock manager
//	handleID, err := locks.Lock("my-resource", 30*time.Second, time.Second, "")
//	if err == nil {
//	  defer locks.Release("my-resource", handleID)
//	  // ... critical section ...
//	}
//
// Performance Considerations:
//
//   - For applications that hammer a single shard, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel in-flight requests.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
// Thread Safety:
//
//	The client implementation is thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
