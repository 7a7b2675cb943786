package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c uint64
		want    uint64
	}{
		{"simple", 10, 3, 2, 15},
		{"truncates toward zero", 10, 1, 3, 3},
		{"zero numerator", 0, 100, 7, 0},
		{"full precision intermediate", math.MaxUint64, 2, 4, math.MaxUint64 / 2},
		{"proportional claim", 9000, 60000 * UnitScale, 100000 * UnitScale, 5400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulDiv_DivisionByZero(t *testing.T) {
	_, err := MulDiv(1, 2, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMulDiv_Overflow(t *testing.T) {
	_, err := MulDiv(math.MaxUint64, math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestApplyBps(t *testing.T) {
	got, err := ApplyBps(10_000, 1000) // 10%
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), got)

	got, err = ApplyBps(10_000, 1500) // 15%
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500), got)

	got, err = ApplyBps(3, 3333) // truncation
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestValidBps(t *testing.T) {
	assert.True(t, ValidBps(0))
	assert.True(t, ValidBps(10000))
	assert.False(t, ValidBps(10001))
}
