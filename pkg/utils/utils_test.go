package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, GenerateUUID())
}

func TestRandString(t *testing.T) {
	s := RandString(16)
	assert.Len(t, s, 16)
	for _, r := range s {
		assert.Contains(t, alphabet, string(r))
	}
}

func TestIsASCII(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/home/user/project", true},
		{"", true},
		{"C:\\Users\\dev\\build", true},
		{"/home/пользователь/проект", false},
		{"/home/usér/project", false},
		{"/tmp/测试", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsASCII(tt.in), tt.in)
	}
}

func TestMinMax(t *testing.T) {
	assert.Equal(t, 5, Max(3, 5))
	assert.Equal(t, 5, Max(5, 3))
	assert.Equal(t, 3, Min(3, 5))
	assert.Equal(t, 3, Min(5, 3))
}

func TestChunk(t *testing.T) {
	windows := [][2]int{}
	err := Chunk(3, 8, func(start, end int) error {
		windows = append(windows, [2]int{start, end})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 8}}, windows)
}

func TestChunkStopsOnError(t *testing.T) {
	calls := 0
	wantErr := errors.New("stop")
	err := Chunk(2, 10, func(start, end int) error {
		calls++
		if calls == 2 {
			return wantErr
		}
		return nil
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 2, calls)
}

func TestChunkZeroTotal(t *testing.T) {
	err := Chunk(3, 0, func(start, end int) error {
		t.Fatal("fn must not be called")
		return nil
	})
	assert.NoError(t, err)
}
