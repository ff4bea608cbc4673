package modules

import (
	"context"

	"github.com/snaiperskaya/snaibot/internal/moderation"
)

// spamFilter kicks and bans people who repeat themselves.
type spamFilter struct {
	tracker *moderation.SpamTracker
}

func (s *spamFilter) HandleMessage(ctx context.Context, b Bot, m *Message) {
	act := s.tracker.Observe(m.Channel, m.Identity, b.Level(m.Channel, m.Nick), m.Text)
	enforce(b, m, "spam", act)
}

// languageFilter warns, kicks and bans people who use banned words.
type languageFilter struct {
	tracker *moderation.LanguageTracker
}

func (l *languageFilter) HandleMessage(ctx context.Context, b Bot, m *Message) {
	warn, act := l.tracker.Observe(m.Channel, m.Identity, b.Level(m.Channel, m.Nick), m.Text)
	if warn {
		moderationActions.WithLabelValues("language", "warn").Inc()
		b.Say(m.Channel, m.Nick+": "+moderation.WarningText)
	}
	enforce(b, m, "language", act)
}

// enforce carries out a tracker's decision against the real sender, never a
// relayed speaker.
func enforce(b Bot, m *Message, filter string, act moderation.Action) {
	switch act.Kind {
	case moderation.KickAndBan:
		b.Ban(m.Channel, banMask(m.Identity))
		b.Kick(m.Channel, m.Nick, act.Reason)
	case moderation.Kick:
		b.Kick(m.Channel, m.Nick, act.Reason)
	default:
		return
	}
	moderationActions.WithLabelValues(filter, act.Kind.String()).Inc()
}
