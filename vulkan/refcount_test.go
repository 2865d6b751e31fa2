package vulkan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefCountedDestroysOnLastRelease(t *testing.T) {
	destroyed := 0
	resource := newRefCounted("resource", func() { destroyed++ })
	require.True(t, resource.Alive())
	require.Equal(t, 1, resource.References())

	resource.Retain()
	require.Equal(t, 2, resource.References())

	resource.Release()
	require.Equal(t, 0, destroyed)
	require.True(t, resource.Alive())

	resource.Release()
	require.Equal(t, 1, destroyed)
	require.False(t, resource.Alive())
}

func TestRefCountedMisuse(t *testing.T) {
	resource := newRefCounted("resource", nil)
	resource.Release()

	require.Panics(t, resource.Retain)
	require.Panics(t, resource.Release)
}

func TestRefCountedChildKeepsParentAlive(t *testing.T) {
	var order []string
	parent := newRefCounted("parent", func() { order = append(order, "parent") })

	parent.Retain()
	child := newRefCounted("child", func() {
		order = append(order, "child")
		parent.Release()
	})

	parent.Release()
	require.True(t, parent.Alive())
	require.Empty(t, order)

	child.Release()
	require.Equal(t, []string{"child", "parent"}, order)
	require.False(t, parent.Alive())
}
