package preprocessing

import (
    "math"
    "time"

    "learninghouse/internal/data"
    "learninghouse/internal/sensors"
)

// AddTimeInformation returns a copy of r with the calendar fields derived
// from its timestamp (seconds since the epoch, fractional allowed). When r
// has no usable timestamp, now is used and recorded. The fields are computed
// in now's location.
func AddTimeInformation(r data.Record, now time.Time) data.Record {
    out := r.Clone()

    ts, ok := data.ToFloat(out[sensors.Timestamp])
    if !ok || math.IsNaN(ts) || math.IsInf(ts, 0) {
        ts = float64(now.UnixNano()) / float64(time.Second)
        out[sensors.Timestamp] = ts
    }

    sec, frac := math.Modf(ts)
    t := time.Unix(int64(sec), int64(frac*float64(time.Second))).In(now.Location())

    out[sensors.MonthOfYear] = float64(t.Month())
    out[sensors.DayOfMonth] = float64(t.Day())
    out[sensors.DayOfWeek] = t.Weekday().String()
    out[sensors.HourOfDay] = float64(t.Hour())
    out[sensors.MinuteOfHour] = float64(t.Minute())

    return out
}
