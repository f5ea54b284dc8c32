package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dLock/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey     byte = 1 << 0
	hasID      byte = 1 << 1
	hasTTL     byte = 1 << 2
	hasWaitTTL byte = 1 << 3
	hasOk      byte = 1 << 4
	hasMode    byte = 1 << 5
	hasIDs     byte = 1 << 6
	hasErr     byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after MsgType and flags

	// Handle Key
	if msg.Key != "" {
		flags |= hasKey
		pos += writeString(result[pos:], msg.Key)
	}

	// Handle ID
	if msg.ID != "" {
		flags |= hasID
		pos += writeString(result[pos:], msg.ID)
	}

	// Handle TTL
	if msg.TTL > 0 {
		flags |= hasTTL
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.TTL)
		pos += 8
	}

	// Handle WaitTTL
	if msg.WaitTTL > 0 {
		flags |= hasWaitTTL
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.WaitTTL)
		pos += 8
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Mode
	if msg.Mode != "" {
		flags |= hasMode
		pos += writeString(result[pos:], msg.Mode)
	}

	// Handle IDs
	if msg.IDs != nil {
		flags |= hasIDs

		// Write entry count
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.IDs)))
		pos += 4

		// Write each entry length-prefixed
		for _, id := range msg.IDs {
			pos += writeString(result[pos:], id)
		}
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		pos += writeString(result[pos:], msg.Err)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	pos := 2

	// Read Key if present
	if flags&hasKey != 0 {
		s, n, err := readString(data[pos:], "key")
		if err != nil {
			return err
		}
		msg.Key = s
		pos += n
	} else {
		msg.Key = ""
	}

	// Read ID if present
	if flags&hasID != 0 {
		s, n, err := readString(data[pos:], "id")
		if err != nil {
			return err
		}
		msg.ID = s
		pos += n
	} else {
		msg.ID = ""
	}

	// Read TTL if present
	if flags&hasTTL != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for TTL")
		}

		msg.TTL = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.TTL = 0
	}

	// Read WaitTTL if present
	if flags&hasWaitTTL != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for WaitTTL")
		}

		msg.WaitTTL = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.WaitTTL = 0
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}

		msg.Ok = data[pos] != 0
		pos += 1
	} else {
		msg.Ok = false
	}

	// Read Mode if present
	if flags&hasMode != 0 {
		s, n, err := readString(data[pos:], "mode")
		if err != nil {
			return err
		}
		msg.Mode = s
		pos += n
	} else {
		msg.Mode = ""
	}

	// Read IDs if present
	if flags&hasIDs != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for ids count")
		}

		// Read entry count
		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		// Sanity check: every entry needs at least its length prefix
		if int(count)*4 > len(data)-pos {
			return fmt.Errorf("data too short for %d id entries", count)
		}

		msg.IDs = make([]string, count)
		for i := uint32(0); i < count; i++ {
			s, n, err := readString(data[pos:], "id entry")
			if err != nil {
				return err
			}
			msg.IDs[i] = s
			pos += n
		}
	} else {
		msg.IDs = nil
	}

	// Read Err if present
	if flags&hasErr != 0 {
		s, n, err := readString(data[pos:], "error")
		if err != nil {
			return err
		}
		msg.Err = s
		pos += n
	} else {
		msg.Err = ""
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// writeString writes a length-prefixed string into buf and returns the number
// of bytes written. The buffer must be large enough (guaranteed by sizeBytes).
func writeString(buf []byte, s string) int {
	binary.BigEndian.PutUint32(buf[:4], uint32(len(s)))
	copy(buf[4:4+len(s)], s)
	return 4 + len(s)
}

// readString reads a length-prefixed string from data and returns the string
// and the number of bytes consumed
func readString(data []byte, field string) (string, int, error) {
	if len(data) < 4 {
		return "", 0, fmt.Errorf("data too short for %s length", field)
	}

	strLen := binary.BigEndian.Uint32(data[:4])
	if 4+int(strLen) > len(data) {
		return "", 0, fmt.Errorf("data too short for %s data", field)
	}

	return string(data[4 : 4+strLen]), 4 + int(strLen), nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Key != "" {
		size += 4 + len(msg.Key) // 4 bytes for length + key string
	}
	if msg.ID != "" {
		size += 4 + len(msg.ID) // 4 bytes for length + id string
	}
	if msg.TTL > 0 {
		size += 8 // uint64
	}
	if msg.WaitTTL > 0 {
		size += 8 // uint64
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.Mode != "" {
		size += 4 + len(msg.Mode) // 4 bytes for length + mode string
	}
	if msg.IDs != nil {
		size += 4 // 4 bytes for entry count
		for _, id := range msg.IDs {
			size += 4 + len(id) // 4 bytes for length + id string
		}
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}

	return size
}
