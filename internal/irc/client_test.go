package irc

import (
	"context"
	"strings"
	"testing"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/inconshreveable/log15.v2"

	"github.com/snaiperskaya/snaibot/internal/access"
	"github.com/snaiperskaya/snaibot/internal/config"
	"github.com/snaiperskaya/snaibot/internal/modules"
	"github.com/snaiperskaya/snaibot/internal/storage"
)

type fakeSender struct {
	nick  string
	lines []string
}

func (f *fakeSender) Send(command string, params ...string) error {
	f.lines = append(f.lines, command+" "+strings.Join(params, " "))
	return nil
}

func (f *fakeSender) Privmsg(target, text string) error {
	return f.Send("PRIVMSG", target, text)
}

func (f *fakeSender) Join(channel string) error { return f.Send("JOIN", channel) }

func (f *fakeSender) Part(channel string) error { return f.Send("PART", channel) }

func (f *fakeSender) SetNick(n string) {
	f.nick = n
	f.Send("NICK", n)
}

func (f *fakeSender) CurrentNick() string { return f.nick }

type recorder struct {
	messages []*modules.Message
	joins    []*modules.Join
}

func (r *recorder) HandleMessage(ctx context.Context, b modules.Bot, m *modules.Message) {
	r.messages = append(r.messages, m)
}

func (r *recorder) HandleJoin(ctx context.Context, b modules.Bot, j *modules.Join) {
	r.joins = append(r.joins, j)
}

type memStore struct {
	logged []storage.CommandLog
}

func (s *memStore) LogCommand(ctx context.Context, hostmask, command string) error {
	s.logged = append(s.logged, storage.CommandLog{Hostmask: hostmask, Command: command})
	return nil
}

func (s *memStore) RecentCommands(ctx context.Context, n int) ([]storage.CommandLog, error) {
	var out []storage.CommandLog
	for i := len(s.logged) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.logged[i])
	}
	return out, nil
}

func newTestClient() (*Client, *fakeSender, *recorder, *memStore) {
	cfg := config.Default()
	cfg.Server.Host = "irc.example.net"
	cfg.Admins = []string{"Owner"}
	log := log15.New()
	log.SetHandler(log15.DiscardHandler())

	out := &fakeSender{nick: "snaibot"}
	rec := &recorder{}
	store := &memStore{}
	c := &Client{
		out:      out,
		cfg:      cfg,
		log:      log,
		store:    store,
		dispatch: rec,
		roster:   NewRoster(),
		ctx:      context.Background(),
	}
	return c, out, rec, store
}

func parse(t *testing.T, line string) ircmsg.Message {
	t.Helper()
	msg, err := ircmsg.ParseLine(line)
	require.NoError(t, err)
	return msg
}

func TestClientChannelState(t *testing.T) {
	assert := assert.New(t)
	c, _, rec, _ := newTestClient()

	c.onJoin(parse(t, ":snaibot!bot@host JOIN #chan"))
	c.onNames(parse(t, ":irc.example.net 353 snaibot = #chan :@snaibot +bob carol"))
	assert.True(c.Joined("#CHAN"))
	assert.Equal(access.Op, c.Level("#chan", c.Nick()))
	assert.Equal(access.Voice, c.Level("#chan", "bob"))
	assert.Empty(rec.joins, "the bot's own join is not dispatched")

	c.onJoin(parse(t, ":dave!d@example.org JOIN #chan"))
	if assert.Len(rec.joins, 1) {
		assert.Equal(modules.Join{Channel: "#chan", Nick: "dave", Identity: "d@example.org"}, *rec.joins[0])
	}

	c.onMode(parse(t, ":bob!b@h MODE #chan +h-v dave bob"))
	assert.Equal(access.HalfOp, c.Level("#chan", "dave"))
	assert.Equal(access.None, c.Level("#chan", "bob"))

	c.onNick(parse(t, ":dave!d@example.org NICK david"))
	assert.Equal(access.HalfOp, c.Level("#chan", "david"))

	c.onKick(parse(t, ":bob!b@h KICK #chan david :bye"))
	assert.Equal(access.None, c.Level("#chan", "david"))

	c.onKick(parse(t, ":bob!b@h KICK #chan snaibot :bye"))
	assert.False(c.Joined("#chan"))
}

func TestClientPrivMsg(t *testing.T) {
	assert := assert.New(t)
	c, _, rec, _ := newTestClient()

	c.onPrivMsg(parse(t, ":bob!bobby@host.example PRIVMSG #chan :hello there"))
	c.onPrivMsg(parse(t, ":SnaiBot!bot@host PRIVMSG #chan :my own echo"))
	c.onPrivMsg(parse(t, ":bob!bobby@host.example PRIVMSG snaibot :*help"))

	if assert.Len(rec.messages, 2) {
		m := rec.messages[0]
		assert.Equal("#chan", m.Channel)
		assert.Equal("bob", m.Nick)
		assert.Equal("bobby@host.example", m.Identity)
		assert.False(m.Private)

		assert.True(rec.messages[1].Private)
		assert.Equal("bob", rec.messages[1].ReplyTarget())
	}
}

func TestClientBotActions(t *testing.T) {
	c, out, _, _ := newTestClient()

	c.Say("#chan", "hi")
	c.Kick("#chan", "bob", "Spamming (bot)")
	c.Ban("#chan", "*!bob@host")
	c.SetMode("#chan", "bob", 'v')
	c.UnsetMode("#chan", "bob", 'o')
	c.Join("#two")
	c.Part("#two")
	c.Identify()

	c.cfg.Server.NickPass = "hunter2"
	c.Identify()

	assert.Equal(t, []string{
		"PRIVMSG #chan hi",
		"KICK #chan bob Spamming (bot)",
		"MODE #chan +b *!bob@host",
		"MODE #chan +v bob",
		"MODE #chan -o bob",
		"JOIN #two",
		"PART #two",
		"PRIVMSG NickServ IDENTIFY snaibot hunter2",
	}, out.lines)
}

func TestClientOwnerCommands(t *testing.T) {
	assert := assert.New(t)
	c, out, rec, store := newTestClient()

	restarted, stopped := false, false
	c.OnRestart = func() { restarted = true }
	c.OnShutdown = func() { stopped = true }

	c.onPrivMsg(parse(t, ":mallory!m@evil PRIVMSG snaibot :*shutdown"))
	assert.False(stopped)
	assert.Equal([]string{"PRIVMSG mallory Sorry, only my admins can shut me down"}, out.lines)

	c.onPrivMsg(parse(t, ":owner!o@home PRIVMSG snaibot :*restart"))
	assert.True(restarted)
	c.onPrivMsg(parse(t, ":owner!o@home PRIVMSG snaibot :*SHUTDOWN now"))
	assert.True(stopped)

	out.lines = nil
	c.onPrivMsg(parse(t, ":owner!o@home PRIVMSG snaibot :*audit 2"))
	assert.Equal([]string{
		"PRIVMSG owner The last \x022\x02 admin commands:",
		"PRIVMSG owner Mon Jan 01, 0001 at 00:00:00 GMT: owner!o@home -> *audit 2",
		"PRIVMSG owner Mon Jan 01, 0001 at 00:00:00 GMT: owner!o@home -> *SHUTDOWN now",
	}, out.lines)

	// owner commands are never handed to the modules, and they only work in private
	assert.Empty(rec.messages)
	c.onPrivMsg(parse(t, ":owner!o@home PRIVMSG #chan :*shutdown"))
	assert.Len(rec.messages, 1)

	assert.Equal(storage.CommandLog{
		Hostmask: "mallory!m@evil",
		Command:  "issued the shutdown command but isn't an admin",
	}, store.logged[0])
}

func TestClientAlternateNick(t *testing.T) {
	c, out, _, _ := newTestClient()

	c.onNickInUse(parse(t, ":irc.example.net 433 * snaibot :Nickname is already in use"))
	assert.Equal(t, "snaibot_", out.nick)

	// already on the alternate, nothing more to do
	c.onNickInUse(parse(t, ":irc.example.net 433 * snaibot_ :Nickname is already in use"))
	assert.Equal(t, []string{"NICK snaibot_"}, out.lines)
}
