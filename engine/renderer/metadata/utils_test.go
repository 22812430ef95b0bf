package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAligned(t *testing.T) {
	cases := []struct {
		operand, granularity, want uint64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{72, 16, 80},
		{257, 256, 512},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, GetAligned(c.operand, c.granularity), "GetAligned(%d, %d)", c.operand, c.granularity)
	}
}
