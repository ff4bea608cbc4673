package modules

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snaiperskaya/snaibot/internal/access"
	"github.com/snaiperskaya/snaibot/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "irc.example.net"
	cfg.Server.Channels = []string{"#chan"}
	cfg.Links = map[string]string{"source": "https://example.com/src", "Rules": "Be nice"}
	cfg.SecretLinks = map[string]string{"secret": "hidden text"}
	cfg.Moderation.RepeatsUntilKick = 3
	cfg.Moderation.KicksUntilBan = 2
	cfg.Moderation.BannedWords = []string{"darn"}
	return cfg
}

func newTestRegistry(t *testing.T, cfg *config.Config, store Store) *Registry {
	t.Helper()
	if store == nil {
		store = newFakeStore()
	}
	r, err := NewRegistry(cfg, Deps{
		Store: store,
		Wiki:  &fakeWiki{base: "http://wiki.example"},
		Rand:  rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)
	return r
}

func TestRegistryHelp(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := testConfig()
	r := newTestRegistry(t, cfg, nil)
	b := newFakeBot("#chan")
	r.HandleMessage(ctx, b, chanMsg("bob", ".help"))
	assert.Equal([]string{"bob: *commands, *help"}, b.texts())

	cfg.Modules = config.Modules{
		News:        true,
		NormalLinks: true,
		SecretLinks: true,
		Choose:      true,
		Wiki:        true,
		Calculator:  true,
		Dice:        true,
	}
	r = newTestRegistry(t, cfg, nil)
	b = newFakeBot("#chan")
	r.HandleMessage(ctx, b, chanMsg("bob", "*Commands"))
	assert.Equal([]string{
		"bob: *commands, *help, *news, *rules, *source, *choose <opt1;opt2;etc>, " +
			"*atlwiki <searchterm>, *fullatlwiki <searchterm>, *calc <expression>, *dice <#d#>",
	}, b.texts())
}

func TestRegistryMissingDeps(t *testing.T) {
	cfg := testConfig()
	cfg.Modules.Admin = true
	_, err := NewRegistry(cfg, Deps{})
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Modules.YouTube = true
	_, err = NewRegistry(cfg, Deps{Store: newFakeStore()})
	assert.Error(t, err)
}

func TestRegistryNames(t *testing.T) {
	cfg := testConfig()
	cfg.Modules.SpamFilter = true
	cfg.Modules.AutoMode = true
	r := newTestRegistry(t, cfg, nil)
	assert.Equal(t, []string{"help", "spam filter", "auto mode"}, r.Names())
}

func TestRegistrySpamFilter(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.Modules.SpamFilter = true
	r := newTestRegistry(t, cfg, nil)

	b := newFakeBot("#chan")
	// not privileged enough to moderate
	b.setLevel("#chan", "snaibot", access.Voice)
	for i := 0; i < 5; i++ {
		r.HandleMessage(ctx, b, chanMsg("spammer", "buy now"))
	}
	assert.Empty(b.kicks)

	b.setLevel("#chan", "snaibot", access.HalfOp)
	for i := 0; i < 3; i++ {
		r.HandleMessage(ctx, b, chanMsg("other", "buy now"))
	}
	assert.Equal([]string{"#chan other Spamming (bot)"}, b.kicks)
	assert.Empty(b.bans)

	r.HandleMessage(ctx, b, chanMsg("other", "buy now"))
	assert.Equal([]string{"#chan *!other@host.example"}, b.bans)
	assert.Len(b.kicks, 2)

	// voiced users are exempt
	b.setLevel("#chan", "vip", access.Voice)
	for i := 0; i < 5; i++ {
		r.HandleMessage(ctx, b, chanMsg("vip", "buy now"))
	}
	assert.Len(b.kicks, 2)

	// private messages never reach moderation
	for i := 0; i < 5; i++ {
		r.HandleMessage(ctx, b, NewMessage("snaibot", "pm", "pm@host", "buy now", true))
	}
	assert.Len(b.kicks, 2)
}

func TestRegistryLanguageFilter(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := testConfig()
	cfg.Modules.LanguageFilter = true
	r := newTestRegistry(t, cfg, nil)

	b := newFakeBot("#chan")
	b.setLevel("#chan", "snaibot", access.Op)

	r.HandleMessage(ctx, b, chanMsg("bob", "well DARN it"))
	assert.Equal([]string{"bob: Please watch your language..."}, b.texts())
	assert.Empty(b.kicks)

	r.HandleMessage(ctx, b, chanMsg("bob", "darn."))
	assert.Len(b.texts(), 2)
	assert.Equal([]string{"#chan bob Swearing (bot)"}, b.kicks)

	r.HandleMessage(ctx, b, chanMsg("bob", "perfectly clean"))
	assert.Len(b.texts(), 2)

	// the bot is not in this channel
	r.HandleMessage(ctx, b, NewMessage("#elsewhere", "bob", "bob@host.example", "darn", false))
	assert.Len(b.texts(), 2)
}

func TestRegistryJoin(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Modules.AutoMode = true
	store := newFakeStore()
	store.modes["#chan bob"] = "v"
	r := newTestRegistry(t, cfg, store)

	b := newFakeBot("#chan")
	b.setLevel("#chan", "snaibot", access.Op)
	r.HandleJoin(ctx, b, &Join{Channel: "#chan", Nick: "Bob", Identity: "bob@host"})
	assert.Equal(t, []string{"#chan +v Bob"}, b.modes)
}
