package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snaiperskaya/snaibot/internal/access"
)

type observation struct {
	warn bool
	kind Kind
}

func observe(l *LanguageTracker, text string, n int) []observation {
	var out []observation
	for i := 0; i < n; i++ {
		warn, act := l.Observe("#chan", "alice@host", access.None, text)
		out = append(out, observation{warn, act.Kind})
	}
	return out
}

func TestNormalizeLanguage(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text string
		out  string
	}{
		{text: "", out: ""},
		{text: "Hello", out: "hello"},
		{text: "...WHAT?!", out: "what"},
		{text: "  (damn)  ", out: "damn"},
		{text: "_-why-_", out: "why"},
		{text: "a\x02b\x03c", out: "abc"},
		{text: "ünïcode", out: "ncode"},
		{text: "mid.dle", out: "mid.dle"},
	}

	for _, fix := range fixtures {
		assert.Equal(fix.out, NormalizeLanguage(fix.text), fix.text)
	}
}

func TestLanguageScenario(t *testing.T) {
	l := NewLanguageTracker(Thresholds{NumTilKick: 5, NumTilBan: 5}, []string{"fuck"})

	got := observe(l, "what the fuck", 2)
	assert.Equal(t, []observation{{true, None}, {true, Kick}}, got)
}

func TestLanguageWarnKickCycle(t *testing.T) {
	assert := assert.New(t)
	l := NewLanguageTracker(Thresholds{NumTilBan: 2}, []string{"darn"})

	assert.Equal([]observation{
		{true, None},        // first offence creates the record
		{true, Kick},        // kick #1
		{true, None},        // counter was reset, warn
		{true, Kick},        // kick #2
		{true, None},        // warn
		{false, KickAndBan}, // PriorKicks(2) >= NumTilBan(2)
	}, observe(l, "DARN it", 6))

	rec, ok := l.Record("#chan", "alice@host")
	assert.True(ok)
	assert.Equal(0, rec.PriorKicks)
	assert.Equal(0, rec.InfractionCount)
}

func TestLanguageFirstMatchWins(t *testing.T) {
	assert := assert.New(t)
	l := NewLanguageTracker(Thresholds{NumTilBan: 5}, []string{"heck", "darn"})

	word, ok := l.Match("darn heck")
	assert.True(ok)
	assert.Equal("heck", word)

	warn, act := l.Observe("#chan", "alice@host", access.None, "heck and darn")
	assert.True(warn)
	assert.Equal(None, act.Kind)

	rec, _ := l.Record("#chan", "alice@host")
	assert.Equal(1, rec.InfractionCount)
}

func TestLanguageCleanMessageDoesNotMutate(t *testing.T) {
	l := NewLanguageTracker(Thresholds{NumTilBan: 5}, []string{"heck"})

	warn, act := l.Observe("#chan", "alice@host", access.None, "hello there")
	assert.False(t, warn)
	assert.Equal(t, NoAction, act)
	_, ok := l.Record("#chan", "alice@host")
	assert.False(t, ok)
}

func TestLanguagePrivilegeExemption(t *testing.T) {
	l := NewLanguageTracker(Thresholds{NumTilBan: 1}, []string{"heck"})

	for i := 0; i < 5; i++ {
		warn, act := l.Observe("#chan", "op@host", access.Op, "heck")
		assert.False(t, warn)
		assert.Equal(t, NoAction, act)
	}
	_, ok := l.Record("#chan", "op@host")
	assert.False(t, ok)
}

func TestLanguageIgnoresEmptyWords(t *testing.T) {
	l := NewLanguageTracker(Thresholds{NumTilBan: 1}, []string{"", "  ", "Heck"})

	_, ok := l.Match("nothing bad here")
	assert.False(t, ok)
	_, ok = l.Match("HECK!")
	assert.True(t, ok)
}
