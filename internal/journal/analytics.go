package journal

import "time"

// MoodRankDay is one calendar-day bucket of the mood trend. Average is nil
// when the day has no mood logs; an empty day is distinct from a neutral one.
type MoodRankDay struct {
	Date    time.Time
	Average *float64
}

// MoodRankAnalytics is the trailing mood trend, oldest day first.
type MoodRankAnalytics struct {
	Days []MoodRankDay
}

// LogAnalytics groups every derived aggregate. It is recomputed from the
// current log collection and never persisted.
type LogAnalytics struct {
	HistoricalMoodRank *MoodRankAnalytics
}
