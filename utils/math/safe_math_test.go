// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaxUint(t *testing.T) {
	require := require.New(t)

	require.Equal(uint8(255), MaxUint[uint8]())
	require.Equal(uint32(4294967295), MaxUint[uint32]())
	require.Equal(uint64(18446744073709551615), MaxUint[uint64]())
}

func TestAdd(t *testing.T) {
	require := require.New(t)

	sum, err := Add(uint32(1), uint32(2))
	require.NoError(err)
	require.Equal(uint32(3), sum)

	sum, err = Add(MaxUint[uint32]()-1, uint32(1))
	require.NoError(err)
	require.Equal(MaxUint[uint32](), sum)

	_, err = Add(MaxUint[uint32](), uint32(1))
	require.ErrorIs(err, ErrOverflow)

	_, err = Add(uint64(1), MaxUint[uint64]())
	require.ErrorIs(err, ErrOverflow)
}

func TestSub(t *testing.T) {
	require := require.New(t)

	diff, err := Sub(uint32(3), uint32(2))
	require.NoError(err)
	require.Equal(uint32(1), diff)

	diff, err = Sub(uint32(2), uint32(2))
	require.NoError(err)
	require.Zero(diff)

	_, err = Sub(uint32(1), uint32(2))
	require.ErrorIs(err, ErrUnderflow)
}
