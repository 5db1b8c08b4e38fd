package xlpatch

import (
	"context"
	"sync"
)

// HostBridge performs a request through an installed spreadsheet
// application. It is an alternate execution path, used when the in-process
// writer cannot handle a document or when a change set asks for it.
type HostBridge interface {
	// Available reports whether the application can be driven at all.
	Available(ctx context.Context) bool
	// Apply performs the request and writes req.OutputPath.
	Apply(ctx context.Context, req Request) error
}

// hostCapability checks the bridge once per Editor.
type hostCapability struct {
	bridge    HostBridge
	once      sync.Once
	available bool
}

func (h *hostCapability) check(ctx context.Context) bool {
	if h.bridge == nil {
		return false
	}
	h.once.Do(func() { h.available = h.bridge.Available(ctx) })
	return h.available
}
