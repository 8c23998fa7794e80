// Package rice implements the Rice (Golomb) code used for the gap stream:
// a quotient in unary (q ones then a terminating zero) followed by a
// fixed-width remainder of ceil(log2 p) bits.
package rice

import (
	mathbits "math/bits"

	"github.com/gcset/gcset/internal/bits"
)

// RemainderWidth returns ceil(log2 p), the fixed remainder width in bits.
// p must be at least 2, so the width is always at least 1.
func RemainderWidth(p uint64) uint8 {
	return uint8(mathbits.Len64(p - 1))
}

// Encoder writes Rice codes with divisor p to a bit writer.
type Encoder struct {
	w     *bits.Writer
	p     uint64
	width uint8
}

func NewEncoder(w *bits.Writer, p uint64) *Encoder {
	return &Encoder{w: w, p: p, width: RemainderWidth(p)}
}

// Encode writes the code for v: floor(v/p) in unary, then v mod p in
// exactly RemainderWidth(p) bits.
func (e *Encoder) Encode(v uint64) {
	e.w.WriteUnary(v / e.p)
	e.w.WriteBits(v%e.p, e.width)
}

// EncodedLen returns the bit length of the code for v without writing it.
func (e *Encoder) EncodedLen(v uint64) uint64 {
	return v/e.p + 1 + uint64(e.width)
}

// Decoder reads Rice codes with divisor p from a bit reader.
type Decoder struct {
	r     *bits.Reader
	p     uint64
	width uint8
}

func NewDecoder(r *bits.Reader, p uint64) *Decoder {
	return &Decoder{r: r, p: p, width: RemainderWidth(p)}
}

// Decode reads one code and returns its value. Reading past the logical
// end of the stream fails with gcserrors.ErrTruncated from the underlying
// reader.
func (d *Decoder) Decode() (uint64, error) {
	q, err := d.r.ReadUnary()
	if err != nil {
		return 0, err
	}
	r, err := d.r.ReadBits(d.width)
	if err != nil {
		return 0, err
	}
	return q*d.p + r, nil
}
