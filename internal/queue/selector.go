// Package queue decides which playlist index plays next.
package queue

import (
	"math/rand/v2"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/tejashwikalptaru/tunequeue/internal/domain"
)

// Cursor is the part of the session the selector looks at.
type Cursor struct {
	Length  int
	Current int // -1 if nothing is selected
	Shuffle bool
	Repeat  domain.RepeatMode
}

// CursorOf extracts a Cursor from a session snapshot.
func CursorOf(s domain.PlaybackSession) Cursor {
	return Cursor{
		Length:  s.Playlist.Len(),
		Current: s.CurrentIndex,
		Shuffle: s.Shuffle,
		Repeat:  s.Repeat,
	}
}

// Selector computes next and previous indices.
// Repeat one is treated like repeat off: looping the current track is the
// caller's job on track end.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector drawing shuffle picks from rng.
// A nil rng uses a randomly seeded source.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{rng: rng}
}

// Next returns the index after c.Current, or None when playback should stop.
func (s *Selector) Next(c Cursor) mo.Option[int] {
	if c.Shuffle {
		return s.shuffled(c)
	}
	if c.Length == 0 {
		return mo.None[int]()
	}

	next := c.Current + 1
	if next < c.Length {
		return mo.Some(next)
	}
	if c.Repeat == domain.RepeatAll {
		return mo.Some(0)
	}
	return mo.None[int]()
}

// Previous returns the index before c.Current, or None when there is none.
func (s *Selector) Previous(c Cursor) mo.Option[int] {
	if c.Shuffle {
		return s.shuffled(c)
	}
	if c.Length == 0 {
		return mo.None[int]()
	}

	prev := c.Current - 1
	if prev >= 0 && prev < c.Length {
		return mo.Some(prev)
	}
	if c.Repeat == domain.RepeatAll {
		return mo.Some(c.Length - 1)
	}
	return mo.None[int]()
}

// shuffled picks uniformly among every index except the current one.
func (s *Selector) shuffled(c Cursor) mo.Option[int] {
	if c.Length <= 1 {
		return mo.None[int]()
	}

	candidates := lo.Without(lo.Range(c.Length), c.Current)

	s.mu.Lock()
	pick := candidates[s.rng.IntN(len(candidates))]
	s.mu.Unlock()

	return mo.Some(pick)
}
