package moderation

import (
	"sync"

	"github.com/snaiperskaya/snaibot/internal/access"
)

// SpamReason is the kick reason for repeated messages.
const SpamReason = "Spamming (bot)"

// RepeatRecord is the repeat-message state of one identity in one channel.
type RepeatRecord struct {
	LastMessage string
	RepeatCount int
	PriorKicks  int
}

// SpamTracker escalates identical repeated messages from tracking to kick to
// ban.
type SpamTracker struct {
	mu         sync.Mutex
	numTilKick int
	numTilBan  int
	records    map[key]*RepeatRecord
}

// NewSpamTracker creates a tracker with fixed thresholds.
func NewSpamTracker(t Thresholds) *SpamTracker {
	return &SpamTracker{
		numTilKick: t.NumTilKick,
		numTilBan:  t.NumTilBan,
		records:    make(map[key]*RepeatRecord),
	}
}

// Observe records a message and returns what should happen to its sender.
func (s *SpamTracker) Observe(channel, identity string, level access.Level, text string) Action {
	if level >= ExemptLevel {
		return NoAction
	}
	text = Fold(text)
	k := keyFor(channel, identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[k]
	if !ok {
		s.records[k] = &RepeatRecord{LastMessage: text, RepeatCount: 1}
		return NoAction
	}
	if rec.LastMessage != text {
		rec.LastMessage = text
		rec.RepeatCount = 1
		return NoAction
	}

	rec.RepeatCount++
	switch {
	case rec.RepeatCount >= s.numTilKick && rec.PriorKicks >= s.numTilBan-1:
		rec.RepeatCount = s.numTilKick - 1
		rec.PriorKicks = 0
		return Action{Kind: KickAndBan, Reason: SpamReason}
	case rec.RepeatCount >= s.numTilKick:
		rec.RepeatCount = s.numTilKick - 1
		rec.PriorKicks++
		return Action{Kind: Kick, Reason: SpamReason}
	}
	return NoAction
}

// Record returns a copy of the state kept for identity in channel.
func (s *SpamTracker) Record(channel, identity string) (RepeatRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[keyFor(channel, identity)]
	if !ok {
		return RepeatRecord{}, false
	}
	return *rec, true
}
