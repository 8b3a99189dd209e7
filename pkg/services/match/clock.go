package match

import (
	"fmt"
	"strconv"
	"strings"
)

// parseClock converts an mm:ss string to total seconds
func parseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", clock)
	}

	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock minutes %q: %w", clock, err)
	}
	seconds, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock seconds %q: %w", clock, err)
	}
	if minutes < 0 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("clock %q out of range", clock)
	}

	return minutes*60 + seconds, nil
}

// formatClock renders total seconds as m:ss with zero-padded seconds
func formatClock(totalSeconds int) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}

// advanceClock subtracts elapsed seconds from an mm:ss clock, clamping at
// 0:00. The clock never goes negative and never wraps.
func advanceClock(remaining string, elapsedSeconds int) (string, error) {
	total, err := parseClock(remaining)
	if err != nil {
		return "", err
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	total -= elapsedSeconds
	if total < 0 {
		total = 0
	}

	return formatClock(total), nil
}
