package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// humanizeLabel turns snake_case identifiers into display labels, e.g.
// "ready_for_publish" into "Ready For Publish".
func humanizeLabel(value string) string {
	if value == "" {
		return "-"
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func formatBoolPtr(value *bool) string {
	if value == nil {
		return "-"
	}
	if *value {
		return "yes"
	}
	return "no"
}

func formatIntPtr(value *int) string {
	if value == nil {
		return "-"
	}
	return strconv.Itoa(*value)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Local().Format("2006-01-02 15:04:05")
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return formatTime(*value)
}

func formatFlags(flags []string) string {
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ", ")
}

func formatMeasured(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatDurationMs(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}
