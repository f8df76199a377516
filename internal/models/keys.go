package models

import (
	"fmt"
	"time"
)

// RunnerKey identifies a runner within a trading day: a horse may run
// once per race time regardless of which market carries it.
func RunnerKey(runnerName string, raceTime time.Time) string {
	return fmt.Sprintf("%s|%s", runnerName, raceTime.UTC().Format(time.RFC3339))
}

// SelectionKey identifies a selection within a market
func SelectionKey(selectionID int64, marketID string) string {
	return fmt.Sprintf("%d|%s", selectionID, marketID)
}
