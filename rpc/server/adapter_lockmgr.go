package server

import (
	"fmt"
	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/common"
	"time"
)

// NewLockManagerServerAdapter creates an adapter that translates RPC messages
// to lockmgr.ILockManager calls.
//
// Timeouts and not-held conditions are regular outcomes of the lock protocol
// and travel as Ok=false responses. Only invalid arguments and internal errors
// are reported via the Err field.
func NewLockManagerServerAdapter() IRPCServerAdapter {
	return &lockMgrServerAdapter{}
}

type lockMgrServerAdapter struct{}

func (adapter *lockMgrServerAdapter) Handle(req *common.Message, mgr lockmgr.ILockManager) (resp *common.Message) {

	// Check for nil manager
	if mgr == nil {
		return common.NewErrorResponse("handler: lock manager is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTLock:
		handleID, err := mgr.Lock(req.Key, wireDuration(req.TTL), wireDuration(req.WaitTTL), req.ID)
		if lockmgr.IsTimeout(err) {
			return common.NewLockResponse("", false, nil)
		}
		return common.NewLockResponse(handleID, err == nil, err)

	case common.MsgTLockRead:
		handleID, err := mgr.LockRead(req.Key, wireDuration(req.TTL), wireDuration(req.WaitTTL), req.ID)
		if lockmgr.IsTimeout(err) {
			return common.NewLockReadResponse("", false, nil)
		}
		return common.NewLockReadResponse(handleID, err == nil, err)

	case common.MsgTRelease:
		ok, err := mgr.Release(req.Key, req.ID)
		if lockmgr.IsNotHeld(err) {
			return common.NewReleaseResponse(false, nil)
		}
		return common.NewReleaseResponse(ok, err)

	case common.MsgTForceRelease:
		ok, err := mgr.ForceRelease(req.Key)
		return common.NewForceReleaseResponse(ok, err)

	case common.MsgTExists:
		info, err := mgr.Exists(req.Key)
		if err != nil {
			return common.NewExistsResponse(false, "", nil, err)
		}

		// Report the mode only for locked resources
		mode := ""
		if info.Locked {
			mode = info.Mode.String()
		}
		return common.NewExistsResponse(info.Locked, mode, info.HolderIDs, nil)

	case common.MsgTUpdateTTL:
		ok, err := mgr.UpdateTTL(req.Key, req.ID, wireDuration(req.TTL))
		if lockmgr.IsNotHeld(err) {
			return common.NewUpdateTTLResponse(false, nil)
		}
		return common.NewUpdateTTLResponse(ok, err)

	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC LockManagerAdapter - Unsupported message type: %s", req.MsgType))
	}
}

// wireDuration converts a wire duration (microseconds) to a time.Duration
func wireDuration(micros uint64) time.Duration {
	return time.Duration(micros) * time.Microsecond
}
