package client

import (
	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/ValentinKolb/dLock/rpc/transport"
	"time"
)

// NewRPCLockMgr creates a new RPC backed lockmgr.ILockManager
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns a lockmgr.ILockManager and an error
//
// The returned manager behaves like a local one: lock timeouts surface as
// errors with code RetCTimeout, releases of unknown ids as RetCNotHeld.
func NewRPCLockMgr(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (lockmgr.ILockManager, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC lock manager
	l := rpcLockMgr{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC lock manager
	return &l, nil
}

type rpcLockMgr struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the lockmgr package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcLockMgr) Lock(key string, ttl, waitTTL time.Duration, id string) (handleID string, err error) {
	req := common.NewLockRequest(key, wireMicros(ttl), wireMicros(waitTTL), id)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return "", err
	}
	if !resp.Ok {
		return "", lockmgr.NewError(lockmgr.RetCTimeout, "lock not granted within wait budget: "+key)
	}
	return resp.ID, nil
}

func (i *rpcLockMgr) LockRead(key string, ttl, waitTTL time.Duration, id string) (handleID string, err error) {
	req := common.NewLockReadRequest(key, wireMicros(ttl), wireMicros(waitTTL), id)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return "", err
	}
	if !resp.Ok {
		return "", lockmgr.NewError(lockmgr.RetCTimeout, "read lock not granted within wait budget: "+key)
	}
	return resp.ID, nil
}

func (i *rpcLockMgr) Release(key, id string) (ok bool, err error) {
	req := common.NewReleaseRequest(key, id)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	if !resp.Ok {
		return false, lockmgr.NewError(lockmgr.RetCNotHeld, "no holder with id found for key: "+key)
	}
	return true, nil
}

func (i *rpcLockMgr) ForceRelease(key string) (ok bool, err error) {
	req := common.NewForceReleaseRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcLockMgr) Exists(key string) (lockmgr.LockInfo, error) {
	req := common.NewExistsRequest(key)
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return lockmgr.LockInfo{}, err
	}
	return lockmgr.LockInfo{
		Locked:    resp.Ok,
		Mode:      lockmgr.ParseMode(resp.Mode),
		HolderIDs: resp.IDs,
	}, nil
}

func (i *rpcLockMgr) UpdateTTL(key, id string, ttl time.Duration) (ok bool, err error) {
	req := common.NewUpdateTTLRequest(key, id, wireMicros(ttl))
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	if !resp.Ok {
		return false, lockmgr.NewError(lockmgr.RetCNotHeld, "no holder with id found for key: "+key)
	}
	return true, nil
}

func (i *rpcLockMgr) Close() error {
	return i.transport.Close()
}

// wireMicros converts a time.Duration to the wire representation (microseconds)
func wireMicros(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Microsecond)
}
