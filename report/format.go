package report

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ============================================================================
// FORMATTING — Korean display of money, counts, percents and dates
// ============================================================================

const dateLayout = "2006-01-02"

var leadingDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// FormatCurrency renders a rounded won amount: 1,234원.
func FormatCurrency(v float64) string {
	return humanize.Comma(int64(math.Round(v))) + "원"
}

// FormatCount renders a rounded count: 12건.
func FormatCount(v float64) string {
	return humanize.Comma(int64(math.Round(v))) + "건"
}

// FormatPercent renders one decimal: 12.3%.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// FormatNumber uses thousands separators and one decimal for fractions.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(math.Round(v*10)/10, 1)
}

// FormatSignedCurrency prefixes gains with "+".
func FormatSignedCurrency(v float64) string {
	n := int64(math.Round(v))
	if n > 0 {
		return "+" + humanize.Comma(n) + "원"
	}
	return humanize.Comma(n) + "원"
}

// FormatSignedCount prefixes gains with "+".
func FormatSignedCount(v float64) string {
	n := int64(math.Round(v))
	if n > 0 {
		return "+" + humanize.Comma(n) + "건"
	}
	return humanize.Comma(n) + "건"
}

// FormatSignedPercent renders a percent change. A nil change is a new
// segment with no previous value.
func FormatSignedPercent(v *float64) string {
	if v == nil {
		return "신규 구간"
	}
	if *v > 0 {
		return fmt.Sprintf("+%.1f%%", *v)
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// FormatDate renders a date cell as YYYY-MM-DD. Unparseable text is
// returned unchanged.
func FormatDate(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	case string:
		s := strings.TrimSpace(t)
		if m := leadingDate.FindString(s); m != "" {
			return m
		}
		return s
	}
	return fmt.Sprint(v)
}

// ParseDate reads a YYYY-MM-DD prefix.
func ParseDate(v any) (time.Time, bool) {
	s := FormatDate(v)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// toFloat converts a numeric cell. Numeric text is accepted.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
