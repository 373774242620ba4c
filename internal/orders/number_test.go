package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 7, 9, 5, 3, 42*int(time.Millisecond), time.FixedZone("IST", 5*3600+1800))

	number, err := NewOrderNumber(now)
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-20260307-033503-042-\d{4}$`, number)
}

func TestNewOrderNumberVariesSuffix(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		number, err := NewOrderNumber(now)
		require.NoError(t, err)
		seen[number] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}
