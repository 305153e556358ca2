package util

import (
	"github.com/dustin/go-humanize"
)

// FormatBytes formats a byte count in human-readable form (e.g. "1.2 MB")
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// FormatCount formats an integer with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
