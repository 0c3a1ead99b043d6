package layers

import (
	"time"
)

// The date format expected by ArcGIS date fields.
const AGS_DATE_FORMAT string = "01/02/2006 15:04:05"

// DateToAGS returns `t`, converted to UTC, formatted as AGS_DATE_FORMAT.
func DateToAGS(t time.Time) string {
	return t.UTC().Format(AGS_DATE_FORMAT)
}

// TimestampToAGS returns the instant `ms` milliseconds since the Unix epoch formatted as AGS_DATE_FORMAT (in UTC).
// Sub-second precision is dropped.
func TimestampToAGS(ms int64) string {
	return DateToAGS(time.UnixMilli(ms))
}
