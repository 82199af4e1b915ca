package utils

import (
	"sync"
	"time"
)

var (
	istOnce     sync.Once
	istLocation *time.Location
)

// GetISTLocation returns the Asia/Kolkata location, falling back to a fixed
// +05:30 zone when tzdata is not available.
func GetISTLocation() *time.Location {
	istOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Kolkata")
		if err != nil {
			loc = time.FixedZone("IST", 5*60*60+30*60)
		}
		istLocation = loc
	})
	return istLocation
}

func TimeNowIST() time.Time {
	return time.Now().In(GetISTLocation())
}

// StartOfDayIST truncates t to midnight in IST.
func StartOfDayIST(t time.Time) time.Time {
	t = t.In(GetISTLocation())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, GetISTLocation())
}
