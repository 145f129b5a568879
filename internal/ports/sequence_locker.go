package ports

import "context"

// Serializes writers of a single sequence key across processes.
type SequenceLocker interface {
	// Block until the key is held or ctx is done. The returned func
	// releases the key and is safe to call more than once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
