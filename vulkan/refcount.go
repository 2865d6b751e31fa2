package vulkan

import "fmt"

// refCounted tracks shared ownership of a native resource. Everything in
// this package is driven from the render thread, so the count is not
// atomic.
type refCounted struct {
	kind    string
	refs    int
	destroy func()
}

func newRefCounted(kind string, destroy func()) *refCounted {
	return &refCounted{kind: kind, refs: 1, destroy: destroy}
}

// Retain adds an owner to the resource.
func (r *refCounted) Retain() {
	if r.refs <= 0 {
		panic(fmt.Sprintf("%s: retained after it was destroyed", r.kind))
	}
	r.refs++
}

// Release drops an owner. The last release destroys the native handle and
// releases everything the resource was holding on to.
func (r *refCounted) Release() {
	if r.refs <= 0 {
		panic(fmt.Sprintf("%s: released more times than it was retained", r.kind))
	}
	r.refs--
	if r.refs == 0 && r.destroy != nil {
		r.destroy()
	}
}

// Alive reports whether the resource still has at least one owner.
func (r *refCounted) Alive() bool {
	return r.refs > 0
}

// References returns the current owner count.
func (r *refCounted) References() int {
	return r.refs
}
