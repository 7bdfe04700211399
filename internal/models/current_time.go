package models

import "time"

// CurrentTimeData is the instant arrival minutes are measured against.
// LocalTime is the same instant on the subway's wall clock.
type CurrentTimeData struct {
	Time         int64  `json:"time"`
	ReadableTime string `json:"readableTime"`
	LocalTime    string `json:"localTime"`
	ClockSource  string `json:"clockSource"`
	Replaying    bool   `json:"replaying"`
}

func NewCurrentTimeData(t time.Time, local *time.Location, source string, replaying bool) CurrentTimeData {
	if local == nil {
		local = time.UTC
	}
	return CurrentTimeData{
		Time:         t.UnixMilli(),
		ReadableTime: t.Format(time.RFC3339),
		LocalTime:    t.In(local).Format("2006-01-02 15:04:05 MST"),
		ClockSource:  source,
		Replaying:    replaying,
	}
}
