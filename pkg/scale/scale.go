// Package scale reads and writes the subset of the SCALE codec needed to
// decode runtime storage values: fixed bytes, compact integers and vector
// lengths.
package scale

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// Compact big-integer mode carries at most 67 bytes (63 + 4).
const maxCompactBytes = 67

var ErrUnexpectedEOF = errors.New("scale: unexpected end of input")

type Decoder struct {
	buf []byte
	pos int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.buf) {
		return nil, ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+n])
	d.pos += n
	return out, nil
}

// Remaining returns a copy of the unread input and consumes it.
func (d *Decoder) Remaining() []byte {
	out := make([]byte, len(d.buf)-d.pos)
	copy(out, d.buf[d.pos:])
	d.pos = len(d.buf)
	return out
}

func (d *Decoder) Len() int {
	return len(d.buf) - d.pos
}

func (d *Decoder) DecodeCompact() (*big.Int, error) {
	first, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch first & 0b11 {
	case 0b00:
		return big.NewInt(int64(first >> 2)), nil
	case 0b01:
		second, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint16([]byte{first, second}) >> 2
		return new(big.Int).SetUint64(uint64(v)), nil
	case 0b10:
		rest, err := d.ReadBytes(3)
		if err != nil {
			return nil, err
		}
		v := binary.LittleEndian.Uint32(append([]byte{first}, rest...)) >> 2
		return new(big.Int).SetUint64(uint64(v)), nil
	default:
		n := int(first>>2) + 4
		if n > maxCompactBytes {
			return nil, errors.Errorf("scale: compact length %d exceeds maximum", n)
		}
		le, err := d.ReadBytes(n)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(reverse(le)), nil
	}
}

func (d *Decoder) DecodeCompactUint64() (uint64, error) {
	v, err := d.DecodeCompact()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Errorf("scale: compact value %s overflows uint64", v.String())
	}
	return v.Uint64(), nil
}

// EncodeCompact returns the compact encoding of a non-negative integer.
func EncodeCompact(v *big.Int) []byte {
	if v.Sign() < 0 {
		panic("scale: cannot encode negative compact value")
	}
	switch {
	case v.Cmp(big.NewInt(1<<6)) < 0:
		return []byte{byte(v.Uint64() << 2)}
	case v.Cmp(big.NewInt(1<<14)) < 0:
		out := make([]byte, 2)
		binary.LittleEndian.PutUint16(out, uint16(v.Uint64()<<2|0b01))
		return out
	case v.Cmp(big.NewInt(1<<30)) < 0:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(v.Uint64()<<2|0b10))
		return out
	}

	le := reverse(v.Bytes())
	for len(le) < 4 {
		le = append(le, 0)
	}
	return append([]byte{byte((len(le)-4)<<2 | 0b11)}, le...)
}

func EncodeCompactUint64(v uint64) []byte {
	return EncodeCompact(new(big.Int).SetUint64(v))
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
