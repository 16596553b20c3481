package models

import "time"

// DateOnly 截断到自然日，统一落在 UTC 以便跨时区比较日历日期
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// withinDates 判断 day 是否落在 [start, end] 闭区间内（按自然日比较）
func withinDates(day, start, end time.Time) bool {
	day = DateOnly(day)
	return !day.Before(DateOnly(start)) && !day.After(DateOnly(end))
}
