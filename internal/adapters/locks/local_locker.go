package locks

import (
	"context"
	"hash/fnv"
	"sync"
)

const numLockShards = 64

// LocalLocker serializes sequence writers within one process.
// Keys are hashed onto a fixed set of shards, so unrelated keys may
// occasionally share a shard; that only costs throughput.
type LocalLocker struct {
	shards [numLockShards]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	l := &LocalLocker{}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	return l
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	shard := l.shards[shardOf(key)]

	select {
	case shard <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-shard })
	}, nil
}

func shardOf(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numLockShards
}
