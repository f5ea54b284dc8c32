package server_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/ValentinKolb/dLock/rpc/server"
	"github.com/ValentinKolb/dLock/rpc/transport"
)

// captureTransport records the registered handler so tests can invoke it
// directly without a real listener.
type captureTransport struct {
	handler transport.ServerHandleFunc
}

func (t *captureTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *captureTransport) Listen(_ common.ServerConfig) error {
	return nil
}

// failingSerializer delegates to a real serializer but fails for Exists
// responses (requests carry a key, responses do not).
type failingSerializer struct {
	inner serializer.IRPCSerializer
}

func (s *failingSerializer) Serialize(msg common.Message) ([]byte, error) {
	if msg.MsgType == common.MsgTExists && msg.Key == "" {
		return nil, fmt.Errorf("response too large")
	}
	return s.inner.Serialize(msg)
}

func (s *failingSerializer) Deserialize(b []byte, msg *common.Message) error {
	return s.inner.Deserialize(b, msg)
}

func testServerConfig() common.ServerConfig {
	return common.ServerConfig{
		Shards:        []uint64{1},
		TimeoutSecond: 1,
		LogLevel:      "info",
		Transport: common.ServerTransportConf{
			Endpoint:          "127.0.0.1:0",
			MaxWorkersPerConn: 1,
		},
	}
}

// TestHandlerReportsSerializeFailure checks that a response which cannot be
// serialized still reaches the client as an error frame instead of an empty
// payload.
func TestHandlerReportsSerializeFailure(t *testing.T) {
	tr := &captureTransport{}
	s := &failingSerializer{inner: serializer.NewJSONSerializer()}

	serv := server.NewRPCServer(testServerConfig(), tr, s)
	if err := serv.Serve(); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if tr.handler == nil {
		t.Fatal("No handler registered")
	}

	reqBytes, err := s.Serialize(*common.NewExistsRequest("some-key"))
	if err != nil {
		t.Fatalf("Serialize request failed: %v", err)
	}

	respBytes := tr.handler(1, reqBytes)
	if len(respBytes) == 0 {
		t.Fatal("Handler returned an empty frame")
	}

	var resp common.Message
	if err := s.Deserialize(respBytes, &resp); err != nil {
		t.Fatalf("Deserialize response failed: %v", err)
	}
	if resp.MsgType != common.MsgTError {
		t.Errorf("Expected error response, got %s", resp.MsgType)
	}
	if !strings.Contains(resp.Err, "failed to serialize response") {
		t.Errorf("Expected serialize failure message, got %q", resp.Err)
	}
}

// TestHandlerUnknownShard checks routing to a shard that does not exist.
func TestHandlerUnknownShard(t *testing.T) {
	tr := &captureTransport{}
	s := serializer.NewJSONSerializer()

	serv := server.NewRPCServer(testServerConfig(), tr, s)
	if err := serv.Serve(); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	reqBytes, err := s.Serialize(*common.NewExistsRequest("some-key"))
	if err != nil {
		t.Fatalf("Serialize request failed: %v", err)
	}

	var resp common.Message
	if err := s.Deserialize(tr.handler(42, reqBytes), &resp); err != nil {
		t.Fatalf("Deserialize response failed: %v", err)
	}
	if resp.MsgType != common.MsgTError || !strings.Contains(resp.Err, "shard not found") {
		t.Errorf("Expected shard-not-found error, got %+v", resp)
	}
}
