// Package leb128 decodes the variable-length integer encoding used for
// instruction immediates and constant expressions. All functions operate on a
// byte slice and additionally return the number of bytes consumed, so callers
// can advance a program counter without re-scanning.
package leb128

import (
	"errors"
	"fmt"
)

var (
	// ErrOverflow means the encoding continued past the widest valid form for
	// the requested type.
	ErrOverflow = errors.New("overflows the expected type")
	// ErrTruncated means the input ended inside an encoding.
	ErrTruncated = errors.New("input truncated")
)

func DecodeUint32(buf []byte) (ret uint32, num uint64, err error) {
	for shift := 0; shift < 35; shift += 7 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("decode uint32: %w", ErrTruncated)
		}
		b := buf[num]
		num++
		ret |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return ret, num, nil
		}
	}
	return 0, 0, fmt.Errorf("decode uint32: %w", ErrOverflow)
}

func DecodeUint64(buf []byte) (ret uint64, num uint64, err error) {
	for shift := 0; shift < 70; shift += 7 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("decode uint64: %w", ErrTruncated)
		}
		b := buf[num]
		num++
		ret |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return ret, num, nil
		}
	}
	return 0, 0, fmt.Errorf("decode uint64: %w", ErrOverflow)
}

func DecodeInt32(buf []byte) (ret int32, num uint64, err error) {
	var shift int
	var b byte
	for shift < 35 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("decode int32: %w", ErrTruncated)
		}
		b = buf[num]
		num++
		ret |= int32(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			// Sign-extend when the final group's sign bit is set.
			if shift < 32 && b&0x40 != 0 {
				ret |= -1 << shift
			}
			return ret, num, nil
		}
	}
	return 0, 0, fmt.Errorf("decode int32: %w", ErrOverflow)
}

func DecodeInt64(buf []byte) (ret int64, num uint64, err error) {
	var shift int
	var b byte
	for shift < 70 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("decode int64: %w", ErrTruncated)
		}
		b = buf[num]
		num++
		ret |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				ret |= -1 << shift
			}
			return ret, num, nil
		}
	}
	return 0, 0, fmt.Errorf("decode int64: %w", ErrOverflow)
}

// DecodeInt33AsInt64 decodes the signed 33-bit block-type immediate: either a
// negative shorthand for a value/empty type, or a non-negative type index.
func DecodeInt33AsInt64(buf []byte) (ret int64, num uint64, err error) {
	var shift int
	var b byte
	for shift < 35 {
		if int(num) >= len(buf) {
			return 0, 0, fmt.Errorf("decode int33: %w", ErrTruncated)
		}
		b = buf[num]
		num++
		ret |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 33 && b&0x40 != 0 {
				ret |= -1 << shift
			}
			// Reduce to the signed 33-bit domain.
			ret &= 1<<33 - 1
			if ret&(1<<32) != 0 {
				ret -= 1 << 33
			}
			return ret, num, nil
		}
	}
	return 0, 0, fmt.Errorf("decode int33: %w", ErrOverflow)
}
