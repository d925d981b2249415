package ui

import (
	"fmt"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// HumanBytes renders a byte count with a binary-unit suffix.
func HumanBytes(b int64) string {
	if b == 0 {
		return "0 B"
	}

	const unit = 1024

	if b < unit {
		return fmt.Sprintf("%d B", b)
	}

	suffixes := []string{"KB", "MB", "GB", "TB"}
	div := int64(unit)
	exp := 0

	for n := b / unit; n >= unit && exp < len(suffixes)-1; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %s", float64(b)/float64(div), suffixes[exp])
}

// HumanTime renders a timestamp relative to now ("just now", "5 minutes
// ago"); the zero time renders as "never".
func HumanTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	secs := int64(time.Since(t).Seconds())

	switch {
	case secs < 60:
		return "just now"
	case secs < 3600:
		return plural(secs/60, "minute")
	case secs < 86400:
		return plural(secs/3600, "hour")
	case secs < 30*86400:
		return plural(secs/86400, "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// HumanDuration renders a second count compactly (45s, 3m20s, 2h5m, 4d11h).
func HumanDuration(totalSecs int64) string {
	switch {
	case totalSecs < 60:
		return fmt.Sprintf("%ds", totalSecs)
	case totalSecs < 3600:
		return fmt.Sprintf("%dm%ds", totalSecs/60, totalSecs%60)
	case totalSecs < 86400:
		return fmt.Sprintf("%dh%dm", totalSecs/3600, (totalSecs%3600)/60)
	default:
		return fmt.Sprintf("%dd%dh", totalSecs/86400, (totalSecs%86400)/3600)
	}
}

// Age renders how long ago a pod started, empty when unknown.
func Age(startTime *metav1.Time) string {
	if startTime == nil || startTime.IsZero() {
		return ""
	}

	return HumanDuration(int64(time.Since(startTime.Time).Seconds()))
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}

	return fmt.Sprintf("%d %ss ago", n, unit)
}
