package testing

import (
	"sync"

	"github.com/go-drift/lvbind/pkg/display"
)

// Region is one region received by a RecordingSink. Pixels is a copy.
type Region struct {
	X, Y, W, H int
	Pixels     []byte
}

// RecordingSink is a display.Sink that keeps every region it receives and
// forwards it to an optional next sink. Setting Fail makes it decline
// regions, for exercising the adapter's error path.
type RecordingSink struct {
	Next display.Sink
	Fail func(x, y, w, h int) error

	mu      sync.Mutex
	regions []Region
}

// WriteRegion implements display.Sink.
func (s *RecordingSink) WriteRegion(x, y, w, h int, pixels []byte) error {
	if s.Fail != nil {
		if err := s.Fail(x, y, w, h); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.regions = append(s.regions, Region{X: x, Y: y, W: w, H: h, Pixels: append([]byte(nil), pixels...)})
	s.mu.Unlock()
	if s.Next != nil {
		return s.Next.WriteRegion(x, y, w, h, pixels)
	}
	return nil
}

// Regions returns the recorded regions in arrival order.
func (s *RecordingSink) Regions() []Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Region(nil), s.regions...)
}

// Len returns the number of recorded regions.
func (s *RecordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regions)
}

// Reset forgets the recorded regions.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions = nil
}
