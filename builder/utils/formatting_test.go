package utils

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Time{}); got != "" {
		t.Errorf("FormatDate(zero) = %q, want empty", got)
	}

	tokyo := time.FixedZone("JST", 9*3600)
	ts := time.Date(2024, 1, 3, 2, 0, 0, 0, tokyo)
	if got := FormatDate(ts); got != "2024-01-02" {
		t.Errorf("FormatDate(%v) = %q, want UTC date 2024-01-02", ts, got)
	}
}
