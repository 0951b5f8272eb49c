package transport

import "math/rand"

// ShuffleBag deals track indices in random order without repeats. Once
// every index was dealt the bag is refilled and reshuffled.
type ShuffleBag struct {
	rng   *rand.Rand
	size  int
	items []int
}

// NewShuffleBag creates an empty bag for size tracks
func NewShuffleBag(size int, rng *rand.Rand) *ShuffleBag {
	return &ShuffleBag{rng: rng, size: size}
}

// Size returns the number of tracks the bag deals from
func (b *ShuffleBag) Size() int {
	return b.size
}

// Remaining returns how many indices are left in the current pass
func (b *ShuffleBag) Remaining() int {
	return len(b.items)
}

// Reset starts a fresh pass over size tracks with current already dealt.
// Pass current = -1 when nothing is playing.
func (b *ShuffleBag) Reset(size, current int) {
	b.size = size
	b.fill()
	b.Take(current)
}

// Remap carries the current pass over to a reordered playlist of size
// tracks. moved maps every old index to its new one, or -1 when the track
// is gone. Tracks with no old index join the pass.
func (b *ShuffleBag) Remap(moved []int, size int) {
	known := make([]bool, size)
	items := make([]int, 0, len(b.items))
	for _, old := range b.items {
		if old >= 0 && old < len(moved) && moved[old] >= 0 {
			items = append(items, moved[old])
		}
	}
	for _, i := range moved {
		if i >= 0 && i < size {
			known[i] = true
		}
	}
	for i := 0; i < size; i++ {
		if known[i] {
			continue
		}
		k := b.rng.Intn(len(items) + 1)
		items = append(items, 0)
		copy(items[k+1:], items[k:])
		items[k] = i
	}

	b.size = size
	b.items = items
}

// Take removes i from the current pass
func (b *ShuffleBag) Take(i int) {
	for k, v := range b.items {
		if v == i {
			b.items = append(b.items[:k], b.items[k+1:]...)
			return
		}
	}
}

// Next deals the next index, refilling when the pass is exhausted. last is
// the index that just played; a fresh pass never starts with it unless it
// is the only track.
func (b *ShuffleBag) Next(last int) int {
	if b.size == 0 {
		return -1
	}
	if len(b.items) == 0 {
		b.fill()
		if b.size > 1 && b.items[len(b.items)-1] == last {
			j := b.rng.Intn(len(b.items) - 1)
			b.items[j], b.items[len(b.items)-1] = b.items[len(b.items)-1], b.items[j]
		}
	}

	i := b.items[len(b.items)-1]
	b.items = b.items[:len(b.items)-1]
	return i
}

// fill deals a new Fisher-Yates permutation of 0..size-1
func (b *ShuffleBag) fill() {
	b.items = make([]int, b.size)
	for i := range b.items {
		b.items[i] = i
	}
	for i := len(b.items) - 1; i > 0; i-- {
		j := b.rng.Intn(i + 1)
		b.items[i], b.items[j] = b.items[j], b.items[i]
	}
}
