package sandwich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundUpTo16(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{64, 64},
		{65, 80},
		{80, 80},
		{100, 112},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, roundUpTo16(c.in))
	}
}

func TestCreateShardIDsCoversFullRange(t *testing.T) {
	m := &Manager{}

	ids := m.createShardIDs(4)

	assert.Equal(t, []int{0, 1, 2, 3}, ids)
}
