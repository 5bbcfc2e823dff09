package display

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes returns a human-readable IEC size ("512 B", "1.5 KiB").
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatBytesWithSign prefixes with + or - for delta display (e.g. "- 1.2 GiB").
func FormatBytesWithSign(bytes int64) string {
	sign := ""
	if bytes > 0 {
		sign = "+ "
	} else if bytes < 0 {
		sign = "- "
		bytes = -bytes
	}
	return sign + FormatBytes(bytes)
}

// FormatDuration rounds d to whole seconds, or milliseconds below a second.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
