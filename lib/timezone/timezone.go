package timezone

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// the portal is operated from Rio Grande do Norte
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("America/Fortaleza")
	if err != nil {
		panic(err)
	}
}

// force timezone to the portal's so dates written by a crawler running on a
// server elsewhere still line up with what the portal shows.
func Now() time.Time {
	return time.Now().In(Location)
}

// ParseDate parses a dd/mm/yyyy date as displayed by the portal.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation("02/01/2006", strings.TrimSpace(value), Location)
}
