package model

import "fmt"

// FormatLapTime renders milliseconds as m:ss.SSS
func FormatLapTime(ms int32) string {
	if ms < 0 {
		ms = 0
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis)
}
