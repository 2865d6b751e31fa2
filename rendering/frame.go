package rendering

// FramesInFlight bounds how many frames the CPU may queue ahead of the GPU.
const FramesInFlight = 2

// frameBackend performs the GPU side of each step of a frame for one frame
// slot.
type frameBackend interface {
	waitForFrame(slot int) error
	acquireImage(slot int) (int, error)
	recordFrame(slot, image int, states []Drawable) error
	submitFrame(slot int) error
	presentFrame(slot, image int) error
}

// frameScheduler runs frames round robin over the frame slots. A failed
// step aborts the frame without advancing to the next slot.
type frameScheduler struct {
	backend frameBackend
	current int
}

func (s *frameScheduler) renderFrame(states []Drawable) error {
	slot := s.current

	if err := s.backend.waitForFrame(slot); err != nil {
		return err
	}

	image, err := s.backend.acquireImage(slot)
	if err != nil {
		return err
	}

	if err := s.backend.recordFrame(slot, image, states); err != nil {
		return err
	}

	if err := s.backend.submitFrame(slot); err != nil {
		return err
	}

	if err := s.backend.presentFrame(slot, image); err != nil {
		return err
	}

	s.current = (slot + 1) % FramesInFlight
	return nil
}

// frameSignature identifies what a frame slot's command buffer was last
// recorded with.
type frameSignature struct {
	image  int
	states []stateSignature
}

type stateSignature struct {
	drawable   Drawable
	generation uint64
}

func signatureOf(image int, states []Drawable) *frameSignature {
	signature := &frameSignature{
		image:  image,
		states: make([]stateSignature, 0, len(states)),
	}
	for _, state := range states {
		signature.states = append(signature.states, stateSignature{
			drawable:   state,
			generation: state.Generation(),
		})
	}
	return signature
}

func (s *frameSignature) matches(other *frameSignature) bool {
	if s == nil || other == nil {
		return false
	}
	if s.image != other.image || len(s.states) != len(other.states) {
		return false
	}
	for i := range s.states {
		if s.states[i] != other.states[i] {
			return false
		}
	}
	return true
}
