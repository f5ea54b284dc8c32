package serializer

import (
	"github.com/ValentinKolb/dLock/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Lock request
		{
			MsgType: common.MsgTLock,
			Key:     "test-key",
			TTL:     5_000_000,
			WaitTTL: 1_000_000,
		},

		// Lock response
		{
			MsgType: common.MsgTLock,
			ID:      "handle-1",
			Ok:      true,
		},

		// Exists response
		{
			MsgType: common.MsgTExists,
			Ok:      true,
			Mode:    "shared",
			IDs:     []string{"holder-1", "holder-2"},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType: common.MsgTLock,
			Key:     "test-lock-key",
			ID:      "test-holder-id",
			TTL:     60_000_000,
			WaitTTL: 300_000_000,
			Ok:      true,
			Mode:    "exclusive",
			IDs:     []string{"test-holder-id"},
			Err:     "this is a test error message",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTCustom; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTLock,
				Key:     "",
				ID:      "",
				TTL:     0,
				WaitTTL: 0,
				Ok:      false,
				Mode:    "",
				IDs:     []string{},
				Err:     "",
			},
		},
		{
			name: "Message with empty strings but Ok=true",
			msg: common.Message{
				MsgType: common.MsgTRelease,
				Key:     "",
				Ok:      true,
				IDs:     nil,
			},
		},
		{
			name: "Message with empty ids slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTExists,
				Key:     "test",
				IDs:     []string{},
			},
		},
		{
			name: "Message with empty string id entries",
			msg: common.Message{
				MsgType: common.MsgTExists,
				IDs:     []string{"", "holder", ""},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// Verify key
			if tc.msg.Key != result.Key {
				t.Errorf("Key mismatch: expected '%s', got '%s'", tc.msg.Key, result.Key)
			}

			// Verify ID
			if tc.msg.ID != result.ID {
				t.Errorf("ID mismatch: expected '%s', got '%s'", tc.msg.ID, result.ID)
			}

			// Verify TTL
			if tc.msg.TTL != result.TTL {
				t.Errorf("TTL mismatch: expected %d, got %d", tc.msg.TTL, result.TTL)
			}

			// Verify WaitTTL
			if tc.msg.WaitTTL != result.WaitTTL {
				t.Errorf("WaitTTL mismatch: expected %d, got %d", tc.msg.WaitTTL, result.WaitTTL)
			}

			// Verify Ok
			if tc.msg.Ok != result.Ok {
				t.Errorf("Ok mismatch: expected %v, got %v", tc.msg.Ok, result.Ok)
			}

			// Verify Mode
			if tc.msg.Mode != result.Mode {
				t.Errorf("Mode mismatch: expected '%s', got '%s'", tc.msg.Mode, result.Mode)
			}

			// Verify Err
			if tc.msg.Err != result.Err {
				t.Errorf("Err mismatch: expected '%s', got '%s'", tc.msg.Err, result.Err)
			}

			// Verify MsgType
			if tc.msg.MsgType != result.MsgType {
				t.Errorf("MsgType mismatch: expected %v, got %v", tc.msg.MsgType, result.MsgType)
			}

			// Special handling for the ids slice that may be nil or empty
			if (tc.msg.IDs == nil) != (result.IDs == nil) {
				t.Errorf("IDs nil/non-nil mismatch: expected %v, got %v", tc.msg.IDs, result.IDs)
			} else if tc.msg.IDs != nil && result.IDs != nil {
				if len(tc.msg.IDs) != len(result.IDs) {
					t.Errorf("IDs length mismatch: expected %d, got %d", len(tc.msg.IDs), len(result.IDs))
				} else {
					for i := 0; i < len(tc.msg.IDs); i++ {
						if tc.msg.IDs[i] != result.IDs[i] {
							t.Errorf("IDs content mismatch at index %d", i)
							break
						}
					}
				}
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for key",
			data:        []byte{1, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims key length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid count for ids",
			data:        []byte{1, 64, 0, 0, 0, 10}, // Claims 10 id entries but no bytes provided
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
