package moderation

import (
	"strings"
	"sync"

	"github.com/snaiperskaya/snaibot/internal/access"
)

// SwearReason is the kick reason for banned words.
const SwearReason = "Swearing (bot)"

// WarningText is said to a speaker whenever the warn flag is raised.
const WarningText = "Please watch your language..."

// InfractionRecord is the banned-word state of one identity in one channel.
type InfractionRecord struct {
	InfractionCount int
	PriorKicks      int
}

// LanguageTracker warns, kicks and finally bans speakers using banned
// substrings. The kick threshold is fixed: one warning, then a kick.
type LanguageTracker struct {
	mu        sync.Mutex
	numTilBan int
	words     []string
	records   map[key]*InfractionRecord
}

// NewLanguageTracker creates a tracker. Words are matched in the given order;
// empty entries are ignored.
func NewLanguageTracker(t Thresholds, words []string) *LanguageTracker {
	lt := &LanguageTracker{
		numTilBan: t.NumTilBan,
		records:   make(map[key]*InfractionRecord),
	}
	for _, w := range words {
		w = Fold(strings.TrimSpace(w))
		if w != "" {
			lt.words = append(lt.words, w)
		}
	}
	return lt
}

// Match returns the first banned word contained in the normalized text.
func (l *LanguageTracker) Match(text string) (string, bool) {
	text = NormalizeLanguage(text)
	for _, w := range l.words {
		if strings.Contains(text, w) {
			return w, true
		}
	}
	return "", false
}

// Observe checks a message for banned words. warn reports whether the
// speaker should be told to watch their language.
func (l *LanguageTracker) Observe(channel, identity string, level access.Level, text string) (warn bool, act Action) {
	if level >= ExemptLevel {
		return false, NoAction
	}
	// only the first banned word counts
	if _, ok := l.Match(text); !ok {
		return false, NoAction
	}
	k := keyFor(channel, identity)

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[k]
	if !ok {
		l.records[k] = &InfractionRecord{InfractionCount: 1}
		return true, NoAction
	}

	switch {
	case rec.InfractionCount >= 1 && rec.PriorKicks >= l.numTilBan:
		rec.InfractionCount = 0
		rec.PriorKicks = 0
		return false, Action{Kind: KickAndBan, Reason: SwearReason}
	case rec.InfractionCount >= 1:
		rec.InfractionCount = 0
		rec.PriorKicks++
		return true, Action{Kind: Kick, Reason: SwearReason}
	}
	rec.InfractionCount++
	return true, NoAction
}

// Record returns a copy of the state kept for identity in channel.
func (l *LanguageTracker) Record(channel, identity string) (InfractionRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[keyFor(channel, identity)]
	if !ok {
		return InfractionRecord{}, false
	}
	return *rec, true
}
