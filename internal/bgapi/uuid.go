package bgapi

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidUUID = errors.New("bgapi: invalid uuid")

// ParseUUID parses a 16-bit ("2a00") or 128-bit
// ("f1b41cde-dbf5-4acf-8679-ecb8b4dca6fe") UUID into wire order.
func ParseUUID(raw string) ([]byte, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	clean = strings.TrimPrefix(strings.ToLower(clean), "0x")
	b, err := hex.DecodeString(clean)
	if err != nil || (len(b) != 2 && len(b) != 16) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUUID, raw)
	}
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b, nil
}

// FormatUUID renders a wire-order UUID in display order.
func FormatUUID(wire []byte) string {
	b := make([]byte, len(wire))
	for i := range wire {
		b[i] = wire[len(wire)-1-i]
	}
	s := hex.EncodeToString(b)
	if len(b) != 16 {
		return s
	}
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}
