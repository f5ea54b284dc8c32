package lock

import (
	"fmt"
	"github.com/ValentinKolb/dLock/cmd/util"
	"github.com/ValentinKolb/dLock/lib/lockmgr"
	"github.com/ValentinKolb/dLock/rpc/client"
	"github.com/spf13/cobra"
	"strings"
	"time"
)

var (
	rpcLockMgr lockmgr.ILockManager

	ttlSeconds  uint64
	waitSeconds uint64
	holderID    string

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire an exclusive lock",
		Long:  "Acquire an exclusive lock on the given key. On success the handle ID is printed, which is needed to release the lock again.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// acquireReadCmd represents the acquire-read command
	acquireReadCmd = &cobra.Command{
		Use:   "acquire-read [key]",
		Short: "Acquire a shared (read) lock",
		Long:  "Acquire a shared lock on the given key. Any number of shared locks may coexist; a shared lock only conflicts with an exclusive one.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquireRead,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [key] [id]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and handle ID. The handle ID is the string returned by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE:  runRelease,
	}

	// forceReleaseCmd represents the force-release command
	forceReleaseCmd = &cobra.Command{
		Use:   "force-release [key]",
		Short: "Release all holders of a key",
		Long:  "Unconditionally release all holders of the given key, regardless of their handle IDs. Intended as an administrative escape hatch.",
		Args:  cobra.ExactArgs(1),
		RunE:  runForceRelease,
	}

	// existsCmd represents the exists command
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Inspect the lock state of a key",
		Args:  cobra.ExactArgs(1),
		RunE:  runExists,
	}

	// updateTTLCmd represents the update-ttl command
	updateTTLCmd = &cobra.Command{
		Use:   "update-ttl [key] [id]",
		Short: "Replace the remaining ttl of a held lock",
		Long:  "Replace the expiry of the holder with the given handle ID by now+ttl. A ttl of 0 means the lock no longer expires.",
		Args:  cobra.ExactArgs(2),
		RunE:  runUpdateTTL,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(acquireReadCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(forceReleaseCmd)
	LockCommands.AddCommand(existsCmd)
	LockCommands.AddCommand(updateTTLCmd)
	LockCommands.AddCommand(perfCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// Set default shard ID for lock operations
	LockCommands.PersistentFlags().Int("shard", 100, util.WrapString("ID of the shard to connect to"))

	// Add flags specific to the acquire commands
	for _, cmd := range []*cobra.Command{acquireCmd, acquireReadCmd} {
		cmd.Flags().Uint64Var(&ttlSeconds, "ttl", 30, "Hold ttl in seconds (0 for a lock that never expires)")
		cmd.Flags().Uint64Var(&waitSeconds, "wait", 0, "How long to wait for the lock in seconds (0 to fail immediately)")
		cmd.Flags().StringVar(&holderID, "id", "", "Caller-supplied handle ID (a unique one is generated if empty)")
	}

	// Add flags specific to update-ttl
	updateTTLCmd.Flags().Uint64Var(&ttlSeconds, "ttl", 30, "New hold ttl in seconds (0 for a lock that never expires)")
}

// setupLockClient initializes the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the lock manager client
	rpcLockMgr, err = client.NewRPCLockMgr(
		shardId,
		*config,
		t,
		s,
	)

	return err
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	return acquire(args[0], rpcLockMgr.Lock)
}

// runAcquireRead handles the acquire-read lock command
func runAcquireRead(_ *cobra.Command, args []string) error {
	return acquire(args[0], rpcLockMgr.LockRead)
}

// acquire attempts to take a lock via the given acquire function (Lock or LockRead)
func acquire(key string, fn func(key string, ttl, waitTTL time.Duration, id string) (string, error)) error {
	handleID, err := fn(
		key,
		time.Duration(ttlSeconds)*time.Second,
		time.Duration(waitSeconds)*time.Second,
		holderID,
	)

	// A timeout is a regular outcome, not a command failure
	if lockmgr.IsTimeout(err) {
		fmt.Printf("acquired=false\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	fmt.Printf("acquired=true, id=%s\n", handleID)
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	key, id := args[0], args[1]

	// Attempt to release the lock
	released, err := rpcLockMgr.Release(key, id)

	// Not held is a regular outcome, not a command failure
	if lockmgr.IsNotHeld(err) {
		fmt.Printf("released=false\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=%v\n", released)
	return nil
}

// runForceRelease handles the force-release lock command
func runForceRelease(_ *cobra.Command, args []string) error {
	key := args[0]

	if _, err := rpcLockMgr.ForceRelease(key); err != nil {
		return fmt.Errorf("failed to force-release lock: %v", err)
	}

	fmt.Printf("released=true\n")
	return nil
}

// runExists handles the exists lock command
func runExists(_ *cobra.Command, args []string) error {
	key := args[0]

	info, err := rpcLockMgr.Exists(key)
	if err != nil {
		return fmt.Errorf("failed to inspect lock: %v", err)
	}

	if !info.Locked {
		fmt.Printf("locked=false\n")
		return nil
	}

	fmt.Printf("locked=true, mode=%s, ids=%s\n", info.Mode, strings.Join(info.HolderIDs, ","))
	return nil
}

// runUpdateTTL handles the update-ttl lock command
func runUpdateTTL(_ *cobra.Command, args []string) error {
	key, id := args[0], args[1]

	ok, err := rpcLockMgr.UpdateTTL(key, id, time.Duration(ttlSeconds)*time.Second)

	// Not held is a regular outcome, not a command failure
	if lockmgr.IsNotHeld(err) {
		fmt.Printf("updated=false\n")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update ttl: %v", err)
	}

	fmt.Printf("updated=%v\n", ok)
	return nil
}
