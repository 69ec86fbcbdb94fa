package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxOrderNumberAttempts bounds the retries after an order number collision.
const maxOrderNumberAttempts = 5

// NewOrderNumber returns a human readable number such as ORD-20261015-3F9A1C07B2.
// The random suffix carries 40 bits; the unique index settles any collision.
func NewOrderNumber(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(hex[:10]))
}
