package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// NewSKU generates a SKU for products created from receipt scans,
// e.g. SKU-1717171717171-9F3A1.
func NewSKU() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("SKU-%d", time.Now().UnixMilli())
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf))[:5]
	return fmt.Sprintf("SKU-%d-%s", time.Now().UnixMilli(), suffix)
}
