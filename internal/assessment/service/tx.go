package service

import (
	"context"
	"sync"
	"time"

	dErrors "talentgate/pkg/domain-errors"
)

// shardedTx provides the in-memory transaction boundary using sharded mutexes.
// Operations are distributed across shards by a hash of the invitation token,
// so transitions for different candidates never contend.
const numTxShards = 64

// defaultTxTimeout bounds a lifecycle transaction.
const defaultTxTimeout = 5 * time.Second

type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

func newShardedTx() *shardedTx {
	return &shardedTx{}
}

func (t *shardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// selectShard picks a shard based on the invitation token from context, or
// defaults to shard 0.
func (t *shardedTx) selectShard(ctx context.Context) int {
	if token := txTokenFrom(ctx); token != "" {
		return int(hashToken(token) % numTxShards)
	}
	return 0
}

// hashToken uses FNV-1a for even shard distribution.
func hashToken(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

type txTokenKey struct{}

var txTokenCtxKey = txTokenKey{}

// withTxToken tags the context with the token a transaction is scoped to.
func withTxToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, txTokenCtxKey, token)
}

func txTokenFrom(ctx context.Context) string {
	if token, ok := ctx.Value(txTokenCtxKey).(string); ok {
		return token
	}
	return ""
}
