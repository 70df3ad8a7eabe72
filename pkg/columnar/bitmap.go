package columnar

import (
	"github.com/bits-and-blooms/bitset"
)

// Bitmap is an append-only bit vector with an explicit length. The bitset
// only grows when a bit is set, so the length of trailing false bits is
// tracked here.
type Bitmap struct {
	bits *bitset.BitSet
	n    int
}

// NewBitmap returns an empty bitmap with room for capacity bits
func NewBitmap(capacity int) *Bitmap {
	return &Bitmap{bits: bitset.New(uint(capacity))}
}

// newBitmapFilled returns a bitmap of n false bits
func newBitmapFilled(n int) *Bitmap {
	return &Bitmap{bits: bitset.New(uint(n)), n: n}
}

// bitmapFromWords rebuilds a bitmap from its persisted words
func bitmapFromWords(words []uint64, n int) *Bitmap {
	return &Bitmap{bits: bitset.From(words), n: n}
}

// Push appends one bit
func (b *Bitmap) Push(v bool) {
	if v {
		b.bits.Set(uint(b.n))
	}
	b.n++
}

// Test returns bit i
func (b *Bitmap) Test(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.bits.Test(uint(i))
}

// Len returns the number of bits pushed
func (b *Bitmap) Len() int { return b.n }

// Count returns the number of set bits
func (b *Bitmap) Count() int { return int(b.bits.Count()) }

// words returns the backing words, trimmed to what n bits need
func (b *Bitmap) words() []uint64 {
	w := b.bits.Bytes()
	need := (b.n + 63) / 64
	if len(w) > need {
		w = w[:need]
	}
	return w
}

// Equal compares length and contents
func (b *Bitmap) Equal(o *Bitmap) bool {
	if b.n != o.n {
		return false
	}
	for i := 0; i < b.n; i++ {
		if b.Test(i) != o.Test(i) {
			return false
		}
	}
	return true
}

// Bools expands the bitmap into a slice
func (b *Bitmap) Bools() []bool {
	out := make([]bool, b.n)
	for i := range out {
		out[i] = b.bits.Test(uint(i))
	}
	return out
}
