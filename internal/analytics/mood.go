// Package analytics derives rolling aggregates from a log collection. Every
// computation is pure: it takes the collection and a reference instant and
// rebuilds its output from scratch, holding no incremental state.
package analytics

import (
	"time"

	"github.com/quillhealth/quill/internal/journal"
)

// TrendWindowDays is the span of the historical mood trend.
const TrendWindowDays = 7

// MoodTrend buckets mood logs into the TrendWindowDays calendar days ending at
// now (oldest first) and averages the mood ordinals per day. Days without mood
// logs yield a nil average.
func MoodTrend(logs []journal.Loggable, now time.Time) journal.MoodRankAnalytics {
	type bucket struct {
		sum   int
		count int
	}

	start := dayStart(now).AddDate(0, 0, -(TrendWindowDays - 1))
	buckets := make([]bucket, TrendWindowDays)

	for _, log := range logs {
		if log.Category != journal.CategoryMood || log.Mood == nil {
			continue
		}
		offset := int(dayStart(log.DateCreated).Sub(start).Hours() / 24)
		if offset < 0 || offset >= TrendWindowDays {
			continue
		}
		buckets[offset].sum += int(log.Mood.Rank)
		buckets[offset].count++
	}

	days := make([]journal.MoodRankDay, TrendWindowDays)
	for i := range buckets {
		day := journal.MoodRankDay{Date: start.AddDate(0, 0, i)}
		if buckets[i].count > 0 {
			average := float64(buckets[i].sum) / float64(buckets[i].count)
			day.Average = &average
		}
		days[i] = day
	}

	return journal.MoodRankAnalytics{Days: days}
}

// Derive assembles the full analytics snapshot for the collection.
func Derive(logs []journal.Loggable, now time.Time) journal.LogAnalytics {
	trend := MoodTrend(logs, now)
	return journal.LogAnalytics{HistoricalMoodRank: &trend}
}

func dayStart(instant time.Time) time.Time {
	utc := instant.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
