package transcript

import (
	"fmt"
	"math"
)

// FormatTime renders seconds as a clock string: M:SS below one hour and
// H:MM:SS from one hour up. Fractional seconds are truncated. Non-finite and
// negative inputs render as "0:00".
func FormatTime(seconds float64) string {
	if !isFinite(seconds) || seconds < 0 {
		return "0:00"
	}

	total := int64(math.Floor(seconds))
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
