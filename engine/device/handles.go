package device

import "sync"

// Handles are opaque identifiers issued by a Device. Zero is never issued and denotes "no handle".
// Each backend resolves them to native objects through a HandleTable, so the presentation stages
// never see driver types.
type (
	// SurfaceHandle identifies a presentable surface owned by the device provider.
	SurfaceHandle uint64
	// SwapchainHandle identifies a swapchain (frame ring) object.
	SwapchainHandle uint64
	// ImageHandle identifies a driver-owned swapchain image. Images are never destroyed directly.
	ImageHandle uint64
	// ImageViewHandle identifies a view onto a swapchain image.
	ImageViewHandle uint64
	// RenderPassHandle identifies a render pass (render target description).
	RenderPassHandle uint64
	// FramebufferHandle identifies a framebuffer.
	FramebufferHandle uint64
	// ShaderModuleHandle identifies a shader module.
	ShaderModuleHandle uint64
	// PipelineLayoutHandle identifies a pipeline layout.
	PipelineLayoutHandle uint64
	// PipelineHandle identifies a graphics pipeline.
	PipelineHandle uint64
)

// HandleTable maps handles of type H to native objects of type T.
// It is the arena a backend allocates handles from; it is safe for concurrent use.
type HandleTable[H ~uint64, T any] struct {
	mu    sync.Mutex
	next  H
	items map[H]T
}

// NewHandleTable creates an empty HandleTable.
//
// Returns:
//   - *HandleTable[H, T]: the table
func NewHandleTable[H ~uint64, T any]() *HandleTable[H, T] {
	return &HandleTable[H, T]{items: make(map[H]T)}
}

// Insert stores v under a freshly issued handle.
//
// Parameters:
//   - v: the native object
//
// Returns:
//   - H: the new handle, never zero
func (t *HandleTable[H, T]) Insert(v T) H {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.items[t.next] = v
	return t.next
}

// Get returns the object stored under h.
//
// Parameters:
//   - h: the handle to resolve
//
// Returns:
//   - T: the stored object, or the zero value
//   - bool: true if h is live
func (t *HandleTable[H, T]) Get(h H) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[h]
	return v, ok
}

// Remove deletes h from the table and returns the object it referred to.
//
// Parameters:
//   - h: the handle to remove
//
// Returns:
//   - T: the removed object, or the zero value
//   - bool: true if h was live
func (t *HandleTable[H, T]) Remove(h H) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.items[h]
	if ok {
		delete(t.items, h)
	}
	return v, ok
}

// Len returns the number of live handles.
//
// Returns:
//   - int: live handle count
func (t *HandleTable[H, T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Drain removes every live handle and returns the objects in handle order,
// which is creation order. Backends use it at teardown.
//
// Returns:
//   - []T: the removed objects
func (t *HandleTable[H, T]) Drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, 0, len(t.items))
	for h := H(1); h <= t.next; h++ {
		if v, ok := t.items[h]; ok {
			out = append(out, v)
		}
	}
	clear(t.items)
	return out
}
