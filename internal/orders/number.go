package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

var suffixSpace = big.NewInt(10000)

// NewOrderNumber formats ORD-YYYYMMDD-HHMMSS-mmm-NNNN from now (UTC) and a
// random four digit suffix.
func NewOrderNumber(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, suffixSpace)
	if err != nil {
		return "", fmt.Errorf("order number suffix: %w", err)
	}
	utc := now.UTC()
	return fmt.Sprintf("ORD-%s-%03d-%04d", utc.Format("20060102-150405"), utc.Nanosecond()/int(time.Millisecond), n.Int64()), nil
}
