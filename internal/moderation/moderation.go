// Package moderation keeps the per-channel abuse counters behind the spam
// and language filters. Trackers only decide; the caller issues the kick or
// ban through the IRC connection.
package moderation

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/snaiperskaya/snaibot/internal/access"
)

// Kind enumerates the outcomes of an observation.
type Kind int

const (
	None Kind = iota
	Kick
	KickAndBan
)

func (k Kind) String() string {
	switch k {
	case Kick:
		return "kick"
	case KickAndBan:
		return "kickban"
	}
	return "none"
}

// Action is what the caller should do about the speaker.
type Action struct {
	Kind   Kind
	Reason string
}

// NoAction is the zero Action.
var NoAction = Action{}

// ExemptLevel is the lowest channel level that is never moderated.
const ExemptLevel = access.Voice

// Thresholds are read once when a tracker is built.
type Thresholds struct {
	// NumTilKick is the number of identical messages that triggers a kick.
	NumTilKick int
	// NumTilBan is the number of kicks after which the next one bans.
	NumTilBan int
}

// Fold case-folds s for comparison. A Caser keeps state, so one is built per
// call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

const trimSet = ".,!?/@#$^:;*&()\\ -_"

// NormalizeLanguage prepares a message for banned word matching: case-fold,
// drop anything outside printable ASCII, then trim punctuation at both ends.
func NormalizeLanguage(s string) string {
	s = Fold(s)
	s = StripNonPrintable(s)
	return strings.Trim(s, trimSet)
}

// StripNonPrintable keeps only printable ASCII (0x20 through 0x7e).
func StripNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r < 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type key struct {
	channel  string
	identity string
}

func keyFor(channel, identity string) key {
	return key{channel: Fold(channel), identity: Fold(identity)}
}
