package leb128

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUint32(t *testing.T) {
	for _, c := range []struct {
		bytes  []byte
		exp    uint32
		expNum uint64
	}{
		{bytes: []byte{0x04}, exp: 4, expNum: 1},
		{bytes: []byte{0x80, 0x7f}, exp: 16256, expNum: 2},
		{bytes: []byte{0xe5, 0x8e, 0x26}, exp: 624485, expNum: 3},
		{bytes: []byte{0x80, 0x80, 0x80, 0x4f}, exp: 165675008, expNum: 4},
		{bytes: []byte{0xff, 0xff, 0xff, 0xff, 0xf}, exp: 0xffffffff, expNum: 5},
	} {
		actual, num, err := DecodeUint32(c.bytes)
		require.NoError(t, err)
		assert.Equal(t, c.exp, actual)
		assert.Equal(t, c.expNum, num)
	}
}

func TestDecodeUint32_Errors(t *testing.T) {
	_, _, err := DecodeUint32([]byte{0x80, 0x80})
	require.ErrorIs(t, err, ErrTruncated)

	_, _, err = DecodeUint32([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestDecodeUint64(t *testing.T) {
	for _, c := range []struct {
		bytes  []byte
		exp    uint64
		expNum uint64
	}{
		{bytes: []byte{0x04}, exp: 4, expNum: 1},
		{bytes: []byte{0x80, 0x7f}, exp: 16256, expNum: 2},
		{bytes: []byte{0xe5, 0x8e, 0x26}, exp: 624485, expNum: 3},
		{bytes: []byte{0x80, 0x80, 0x80, 0x4f}, exp: 165675008, expNum: 4},
		{bytes: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, exp: 0xffffffffffffffff, expNum: 10},
	} {
		actual, num, err := DecodeUint64(c.bytes)
		require.NoError(t, err)
		assert.Equal(t, c.exp, actual)
		assert.Equal(t, c.expNum, num)
	}
}

func TestDecodeInt32(t *testing.T) {
	for _, c := range []struct {
		bytes  []byte
		exp    int32
		expNum uint64
	}{
		{bytes: []byte{0x13}, exp: 19, expNum: 1},
		{bytes: []byte{0x00}, exp: 0, expNum: 1},
		{bytes: []byte{0x04}, exp: 4, expNum: 1},
		{bytes: []byte{0x7f}, exp: -1, expNum: 1},
		{bytes: []byte{0x81, 0x01}, exp: 129, expNum: 2},
		{bytes: []byte{0x7f, 0x7f}, exp: -1, expNum: 1},
		{bytes: []byte{0xff, 0x7e}, exp: -129, expNum: 2},
		{bytes: []byte{0xff, 0xff, 0xff, 0xff, 0x07}, exp: 0x7fffffff, expNum: 5},
		{bytes: []byte{0x80, 0x80, 0x80, 0x80, 0x78}, exp: -0x80000000, expNum: 5},
	} {
		actual, num, err := DecodeInt32(c.bytes)
		require.NoError(t, err)
		assert.Equal(t, c.exp, actual)
		assert.Equal(t, c.expNum, num)
	}
}

func TestDecodeInt64(t *testing.T) {
	for _, c := range []struct {
		bytes  []byte
		exp    int64
		expNum uint64
	}{
		{bytes: []byte{0x00}, exp: 0, expNum: 1},
		{bytes: []byte{0x04}, exp: 4, expNum: 1},
		{bytes: []byte{0x7f}, exp: -1, expNum: 1},
		{bytes: []byte{0x81, 0x01}, exp: 129, expNum: 2},
		{bytes: []byte{0xff, 0x7e}, exp: -129, expNum: 2},
		{bytes: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00},
			exp: 0x7fffffffffffffff, expNum: 10},
		{bytes: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x7f},
			exp: -0x8000000000000000, expNum: 10},
	} {
		actual, num, err := DecodeInt64(c.bytes)
		require.NoError(t, err)
		assert.Equal(t, c.exp, actual)
		assert.Equal(t, c.expNum, num)
	}
}

func TestDecodeInt33AsInt64(t *testing.T) {
	for _, c := range []struct {
		bytes  []byte
		exp    int64
		expNum uint64
	}{
		{bytes: []byte{0x40}, exp: -64, expNum: 1},
		{bytes: []byte{0x7f}, exp: -1, expNum: 1},
		{bytes: []byte{0x7e}, exp: -2, expNum: 1},
		{bytes: []byte{0x7d}, exp: -3, expNum: 1},
		{bytes: []byte{0x7c}, exp: -4, expNum: 1},
		{bytes: []byte{0x00}, exp: 0, expNum: 1},
		{bytes: []byte{0x05}, exp: 5, expNum: 1},
		{bytes: []byte{0x81, 0x01}, exp: 129, expNum: 2},
	} {
		actual, num, err := DecodeInt33AsInt64(c.bytes)
		require.NoError(t, err)
		assert.Equal(t, c.exp, actual)
		assert.Equal(t, c.expNum, num)
	}
}
