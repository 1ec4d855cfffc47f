package utils

import (
	"sync"
	"time"
	_ "time/tzdata"
)

const dbDateTimeLayout = "2006-01-02 15:04:05"

var (
	parisOnce sync.Once
	parisLoc  *time.Location
)

// ParisLocation returns the cached Europe/Paris location. Stored timestamps
// are shop-local so they sort as strings.
func ParisLocation() *time.Location {
	parisOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Paris")
		if err != nil {
			loc = time.UTC
		}
		parisLoc = loc
	})
	return parisLoc
}

// NowParis returns the current time in the Europe/Paris timezone.
func NowParis() time.Time {
	return time.Now().In(ParisLocation())
}

// FormatDateTimeForDB formats a time for the text timestamp columns.
func FormatDateTimeForDB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(ParisLocation()).Format(dbDateTimeLayout)
}
