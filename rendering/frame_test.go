package rendering

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	steps  []string
	images int
	next   int
	failAt string
	states [][]Drawable
}

func (b *fakeBackend) step(name string, slot int) error {
	b.steps = append(b.steps, fmt.Sprintf("%s:%d", name, slot))
	if b.failAt == name {
		return errors.Newf("%s failed", name)
	}
	return nil
}

func (b *fakeBackend) waitForFrame(slot int) error {
	return b.step("wait", slot)
}

func (b *fakeBackend) acquireImage(slot int) (int, error) {
	if err := b.step("acquire", slot); err != nil {
		return 0, err
	}
	image := b.next
	b.next = (b.next + 1) % b.images
	return image, nil
}

func (b *fakeBackend) recordFrame(slot, image int, states []Drawable) error {
	b.states = append(b.states, states)
	return b.step("record", slot)
}

func (b *fakeBackend) submitFrame(slot int) error {
	return b.step("submit", slot)
}

func (b *fakeBackend) presentFrame(slot, image int) error {
	return b.step("present", slot)
}

func TestFrameSchedulerRoundRobin(t *testing.T) {
	backend := &fakeBackend{images: 3}
	scheduler := frameScheduler{backend: backend}

	var slots []int
	for i := 0; i < 4; i++ {
		slots = append(slots, scheduler.current)
		require.NoError(t, scheduler.renderFrame(nil))
	}

	require.Equal(t, []int{0, 1, 0, 1}, slots)
	require.Equal(t, 0, scheduler.current)
}

func TestFrameSchedulerStepOrder(t *testing.T) {
	backend := &fakeBackend{images: 3}
	scheduler := frameScheduler{backend: backend}

	require.NoError(t, scheduler.renderFrame(nil))
	require.NoError(t, scheduler.renderFrame(nil))

	require.Equal(t, []string{
		"wait:0", "acquire:0", "record:0", "submit:0", "present:0",
		"wait:1", "acquire:1", "record:1", "submit:1", "present:1",
	}, backend.steps)
}

func TestFrameSchedulerFailureKeepsSlot(t *testing.T) {
	steps := []string{"wait", "acquire", "record", "submit", "present"}

	for i, failing := range steps {
		t.Run(failing, func(t *testing.T) {
			backend := &fakeBackend{images: 3, failAt: failing}
			scheduler := frameScheduler{backend: backend, current: 1}

			err := scheduler.renderFrame(nil)
			require.Error(t, err)
			require.Contains(t, err.Error(), failing)
			require.Equal(t, 1, scheduler.current)
			require.Len(t, backend.steps, i+1)
		})
	}
}

func TestFrameSchedulerPassesStatesInOrder(t *testing.T) {
	backend := &fakeBackend{images: 2}
	scheduler := frameScheduler{backend: backend}

	first := newRenderState[NoConstants, NoConstants, NoConstants](nil, noSizes, 3)
	second := newRenderState[NoConstants, NoConstants, NoConstants](nil, noSizes, 6)

	require.NoError(t, scheduler.renderFrame([]Drawable{first, second}))
	require.Len(t, backend.states, 1)
	require.Equal(t, []Drawable{first, second}, backend.states[0])
}

func TestFrameSignature(t *testing.T) {
	state := newRenderState[NoConstants, vertexPush, NoConstants](nil, vertexSizes, 3)
	other := newRenderState[NoConstants, vertexPush, NoConstants](nil, vertexSizes, 3)

	recorded := signatureOf(1, []Drawable{state, other})
	require.True(t, signatureOf(1, []Drawable{state, other}).matches(recorded))

	require.False(t, signatureOf(0, []Drawable{state, other}).matches(recorded), "different image")
	require.False(t, signatureOf(1, []Drawable{other, state}).matches(recorded), "different order")
	require.False(t, signatureOf(1, []Drawable{state}).matches(recorded), "different count")

	var missing *frameSignature
	require.False(t, recorded.matches(nil))
	require.False(t, missing.matches(recorded))

	require.NoError(t, state.PushVertex(vertexPush{Scale: 2}))
	require.False(t, signatureOf(1, []Drawable{state, other}).matches(recorded), "payload changed")
}
