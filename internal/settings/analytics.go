package settings

import (
	"fmt"
	"log/slog"
	"time"
)

const appStartedDayKeyPrefix = "analytics.app_started_day."

// AppStartedDayKey scopes the last-tracked day to an app version
func AppStartedDayKey(version string) string {
	return appStartedDayKeyPrefix + version
}

// ShouldTrackAppStarted is true unless the event was already tracked today
func ShouldTrackAppStarted(lastTrackedDay, today string) bool {
	return lastTrackedDay != today
}

func utcDay(t time.Time) string {
	y, m, d := t.UTC().Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// TrackAppStarted records the app_started event at most once per UTC day per
// version and reports whether it fired. Store failures are logged, not returned.
func TrackAppStarted(store *Store, version string, now time.Time, logger *slog.Logger) bool {
	key := AppStartedDayKey(version)
	today := utcDay(now)

	last, _ := store.GetString(key)
	if !ShouldTrackAppStarted(last, today) {
		return false
	}

	logger.Info("app started", "version", version, "day", today)

	if err := store.Set(key, today); err != nil {
		logger.Warn("Failed to record app_started tracked day", "error", err)
		return true
	}
	if err := store.Save(); err != nil {
		logger.Warn("Failed to save app_started tracked day", "error", err)
	}
	return true
}
