// Package modules holds the bot's feature modules and the registry that
// dispatches channel events to them. The registry is built once from the
// configuration; which modules run is fixed for the life of the process.
package modules

import (
	"context"
	"strings"

	"github.com/snaiperskaya/snaibot/internal/access"
	"github.com/snaiperskaya/snaibot/internal/storage"
)

// Bot is what modules can see and do on the IRC connection.
type Bot interface {
	// Nick is the bot's current nick.
	Nick() string
	// Joined reports whether the bot is in channel.
	Joined(channel string) bool
	// Level is nick's privilege in channel.
	Level(channel, nick string) access.Level

	Say(target, text string)
	Kick(channel, nick, reason string)
	Ban(channel, mask string)
	SetMode(channel, nick string, mode rune)
	UnsetMode(channel, nick string, mode rune)
	Join(channel string)
	Part(channel string)
	// Identify re-sends the NickServ password.
	Identify()
}

// Store is the persistence the modules need.
type Store interface {
	UpdateChanMode(ctx context.Context, channel, nick, mode string) error
	ChanMode(ctx context.Context, channel, nick string) (string, error)
	News(ctx context.Context) (storage.News, bool, error)
	SetNews(ctx context.Context, text, setter string) error
	LogCommand(ctx context.Context, hostmask, command string) error
}

// Message is an inbound PRIVMSG.
type Message struct {
	// Channel is the target the message was sent to. For private messages
	// it is the bot's nick.
	Channel  string
	Nick     string
	Identity string // user@host
	Text     string
	Private  bool

	// Speaker and Body are Nick and Text unless the line came through a
	// relay bot as "<nick> text", in which case they describe the relayed
	// speaker.
	Speaker string
	Body    string
	// Lower is Body lower-cased, used for command matching.
	Lower string
}

// NewMessage builds a Message and resolves relayed speakers.
func NewMessage(channel, nick, identity, text string, private bool) *Message {
	m := &Message{
		Channel:  channel,
		Nick:     nick,
		Identity: identity,
		Text:     text,
		Private:  private,
		Speaker:  nick,
		Body:     text,
	}
	if strings.HasPrefix(text, "<") {
		if i := strings.Index(text, "> "); i > 1 {
			m.Speaker = text[1:i]
			m.Body = text[i+2:]
		}
	}
	m.Lower = strings.ToLower(m.Body)
	return m
}

// Hostmask is nick!user@host of the real sender.
func (m *Message) Hostmask() string {
	return m.Nick + "!" + m.Identity
}

// ReplyTarget is where public answers go: the channel, or the sender when
// the message was private.
func (m *Message) ReplyTarget() string {
	if m.Private {
		return m.Nick
	}
	return m.Channel
}

// Join is an inbound JOIN by someone other than the bot.
type Join struct {
	Channel  string
	Nick     string
	Identity string
}

// MessageHandler reacts to messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, b Bot, m *Message)
}

// JoinHandler reacts to joins.
type JoinHandler interface {
	HandleJoin(ctx context.Context, b Bot, j *Join)
}

// Helper contributes entries to the *help listing.
type Helper interface {
	Help() []string
}

// reply answers in public, addressed to the speaker.
func reply(b Bot, m *Message, text string) {
	b.Say(m.ReplyTarget(), m.Speaker+": "+text)
}

// command matches "*name" or "*name args" at the start of the body, ignoring
// case, and returns the arguments as written.
func command(m *Message, name string) (string, bool) {
	prefix := "*" + name
	if len(m.Body) < len(prefix) || !strings.EqualFold(m.Body[:len(prefix)], prefix) {
		return "", false
	}
	rest := m.Body[len(prefix):]
	if rest != "" && rest[0] != ' ' {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// banMask bans by user@host so a nick change does not dodge it.
func banMask(identity string) string {
	return "*!" + identity
}
