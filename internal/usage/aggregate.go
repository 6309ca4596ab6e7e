package usage

import "time"

// Profile summarizes every recorded signal for one package.
type Profile struct {
	LastUsed   time.Time // zero when no signal was ever observed
	Signal     Kind      // signal that produced LastUsed
	EventCount int
}

// Used reports whether any signal was ever observed.
func (p Profile) Used() bool {
	return !p.LastUsed.IsZero()
}

// DaysSince returns whole days between the last use and now. Packages
// with no signal report -1.
func (p Profile) DaysSince(now time.Time) int {
	if !p.Used() {
		return -1
	}
	d := int(now.Sub(p.LastUsed).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d
}

// Aggregate folds events into a profile. The newest event always decides
// LastUsed regardless of signal kind; when two kinds report the same day,
// the higher-confidence kind labels the profile.
func Aggregate(events []Event) Profile {
	p := Profile{EventCount: len(events)}
	for _, ev := range events {
		if ev.Date.After(p.LastUsed) {
			p.LastUsed = ev.Date
			p.Signal = ev.Kind
		} else if ev.Date.Equal(p.LastUsed) && ev.Kind.Confidence() > p.Signal.Confidence() {
			p.Signal = ev.Kind
		}
	}
	return p
}
