package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
//
// Durations (TTL, WaitTTL) travel as microseconds on the wire.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key     string `json:"key,omitempty"`     // Used for: all lock operations
	ID      string `json:"id,omitempty"`      // Holder id (requests: Lock, Release, ForceRelease, UpdateTTL; responses: Lock, LockRead)
	TTL     uint64 `json:"ttl,omitempty"`     // Hold ttl in microseconds, 0 means never expires (Lock, LockRead, UpdateTTL)
	WaitTTL uint64 `json:"waitTtl,omitempty"` // Max wait time in microseconds, 0 means fail immediately (Lock, LockRead)

	// Response only fields
	Ok   bool     `json:"ok,omitempty"`   // Used for: Lock, LockRead, Release, ForceRelease, Exists, UpdateTTL responses
	Mode string   `json:"mode,omitempty"` // Lock mode of a resource (Exists response)
	IDs  []string `json:"ids,omitempty"`  // Holder ids of a resource (Exists response)
	Err  string   `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewLockRequest creates a new Lock request
func NewLockRequest(key string, ttl, waitTTL uint64, id string) *Message {
	return &Message{
		MsgType: MsgTLock,
		Key:     key,
		ID:      id,
		TTL:     ttl,
		WaitTTL: waitTTL,
	}
}

// NewLockResponse creates a new Lock response
func NewLockResponse(handleID string, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTLock,
		ID:      handleID,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewLockReadRequest creates a new LockRead request
func NewLockReadRequest(key string, ttl, waitTTL uint64, id string) *Message {
	return &Message{
		MsgType: MsgTLockRead,
		Key:     key,
		ID:      id,
		TTL:     ttl,
		WaitTTL: waitTTL,
	}
}

// NewLockReadResponse creates a new LockRead response
func NewLockReadResponse(handleID string, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTLockRead,
		ID:      handleID,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewReleaseRequest creates a new Release request
func NewReleaseRequest(key, id string) *Message {
	return &Message{
		MsgType: MsgTRelease,
		Key:     key,
		ID:      id,
	}
}

// NewReleaseResponse creates a new Release response
func NewReleaseResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTRelease,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewForceReleaseRequest creates a new ForceRelease request
func NewForceReleaseRequest(key string) *Message {
	return &Message{
		MsgType: MsgTForceRelease,
		Key:     key,
	}
}

// NewForceReleaseResponse creates a new ForceRelease response
func NewForceReleaseResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTForceRelease,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewExistsRequest creates a new Exists request
func NewExistsRequest(key string) *Message {
	return &Message{
		MsgType: MsgTExists,
		Key:     key,
	}
}

// NewExistsResponse creates a new Exists response
func NewExistsResponse(locked bool, mode string, ids []string, err error) *Message {
	msg := &Message{
		MsgType: MsgTExists,
		Ok:      locked,
		Mode:    mode,
		IDs:     ids,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewUpdateTTLRequest creates a new UpdateTTL request
func NewUpdateTTLRequest(key, id string, ttl uint64) *Message {
	return &Message{
		MsgType: MsgTUpdateTTL,
		Key:     key,
		ID:      id,
		TTL:     ttl,
	}
}

// NewUpdateTTLResponse creates a new UpdateTTL response
func NewUpdateTTLResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTUpdateTTL,
		Ok:      ok,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTLock:
		return "lock"
	case MsgTLockRead:
		return "lockRead"
	case MsgTRelease:
		return "release"
	case MsgTForceRelease:
		return "forceRelease"
	case MsgTExists:
		return "exists"
	case MsgTUpdateTTL:
		return "updateTtl"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "lock":
		*t = MsgTLock
	case "lockRead":
		*t = MsgTLockRead
	case "release":
		*t = MsgTRelease
	case "forceRelease":
		*t = MsgTForceRelease
	case "exists":
		*t = MsgTExists
	case "updateTtl":
		*t = MsgTUpdateTTL
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// ILockManager operations

	MsgTLock         // Acquire an exclusive lock
	MsgTLockRead     // Acquire a shared lock
	MsgTRelease      // Release a held lock
	MsgTForceRelease // Evict all holders of a resource
	MsgTExists       // Inspect the lock state of a resource
	MsgTUpdateTTL    // Replace the remaining ttl of a held lock

	// Custom operations

	MsgTCustom // Custom operation type
)
