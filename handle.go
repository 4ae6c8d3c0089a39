package fetchqueue

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// ErrHandleSpaceExhausted is returned by Submit when no free handle can be
// found in the configured handle range.
var ErrHandleSpaceExhausted = errors.New("handle space exhausted")

const (
	defaultHandleMin Handle = 1000
	defaultHandleMax Handle = 9998
	// attemptsPerHandle bounds the random draws to this many times the size of
	// the range.
	attemptsPerHandle = 10
)

// handleAllocator draws random handles from the inclusive range [min, max].
// It is not safe for concurrent use; the Dispatcher calls it under its lock.
type handleAllocator struct {
	min  Handle
	max  Handle
	rand *rand.Rand
}

func newHandleAllocator(min, max Handle) *handleAllocator {
	return &handleAllocator{
		min:  min,
		max:  max,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (a *handleAllocator) size() int {
	return int(a.max-a.min) + 1
}

// allocate returns the first candidate for which live reports false. live
// must account for every container a handle can be held by.
func (a *handleAllocator) allocate(live func(Handle) bool, liveCount int) (Handle, error) {
	size := a.size()
	if liveCount >= size {
		return 0, errors.Wrapf(ErrHandleSpaceExhausted, "all %d handles in [%d, %d] are in use", size, a.min, a.max)
	}
	for i := 0; i < attemptsPerHandle*size; i++ {
		candidate := a.min + Handle(a.rand.Intn(size))
		if !live(candidate) {
			return candidate, nil
		}
	}
	return 0, errors.Wrapf(ErrHandleSpaceExhausted, "no free handle after %d attempts", attemptsPerHandle*size)
}
