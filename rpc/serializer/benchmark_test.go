package serializer

import (
	"fmt"
	"github.com/ValentinKolb/dLock/rpc/common"
	"testing"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	// Exists responses carry one id per holder, so shared locks with many
	// readers produce the largest messages
	manyHolders := make([]string, 64)
	for i := range manyHolders {
		manyHolders[i] = fmt.Sprintf("holder-%032d", i)
	}

	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"SmallKeyOnly": {
			MsgType: common.MsgTExists,
			Key:     "k",
		},
		"MediumKeyOnly": {
			MsgType: common.MsgTExists,
			Key:     "medium-length-key-for-testing",
		},
		"LargeKeyOnly": {
			MsgType: common.MsgTExists,
			Key:     "this-is-a-very-large-key-that-could-be-used-as-a-resource-path-or-as-a-document-id-in-some-cases",
		},
		"LockRequest": {
			MsgType: common.MsgTLock,
			Key:     "key",
			TTL:     10_000_000,
			WaitTTL: 1_000_000,
		},
		"LockResponse": {
			MsgType: common.MsgTLock,
			ID:      "9f86d081884c7d659a2feaa0c55ad015",
			Ok:      true,
		},
		"ExistsFewHolders": {
			MsgType: common.MsgTExists,
			Ok:      true,
			Mode:    "shared",
			IDs:     manyHolders[:3],
		},
		"ExistsManyHolders": {
			MsgType: common.MsgTExists,
			Ok:      true,
			Mode:    "shared",
			IDs:     manyHolders,
		},
		"CompleteMessage": {
			MsgType: common.MsgTLock,
			Key:     "complete-test-key",
			ID:      "test-holder-id",
			TTL:     10_000_000,
			WaitTTL: 20_000_000,
			Ok:      true,
			Mode:    "exclusive",
			IDs:     []string{"test-holder-id"},
			Err:     "This is a test error message",
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
