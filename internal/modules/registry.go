package modules

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"gopkg.in/inconshreveable/log15.v2"

	"github.com/snaiperskaya/snaibot/internal/access"
	"github.com/snaiperskaya/snaibot/internal/config"
	"github.com/snaiperskaya/snaibot/internal/moderation"
)

// Deps are the collaborators modules are built with. Wiki and YouTube are
// only required when their modules are enabled.
type Deps struct {
	Log     log15.Logger
	Store   Store
	Wiki    WikiSearcher
	YouTube VideoLookup
	Rand    *rand.Rand
}

type entry struct {
	name string
	// requires is the level the bot must hold in a channel before the
	// module sees that channel's messages. Modules that require anything
	// never see private messages.
	requires access.Level
	handler  MessageHandler
}

type joinEntry struct {
	name    string
	handler JoinHandler
}

// Registry dispatches events to the enabled modules in a fixed order.
type Registry struct {
	log      log15.Logger
	messages []entry
	joins    []joinEntry
}

// NewRegistry builds the module list from a validated configuration.
func NewRegistry(cfg *config.Config, deps Deps) (*Registry, error) {
	if deps.Log == nil {
		deps.Log = log15.New()
		deps.Log.SetHandler(log15.DiscardHandler())
	}
	if deps.Rand == nil {
		now := uint64(time.Now().UnixNano())
		deps.Rand = rand.New(rand.NewPCG(now, now>>7))
	}
	needStore := cfg.Modules.News || cfg.Modules.Admin || cfg.Modules.AutoMode
	if needStore && deps.Store == nil {
		return nil, errors.New("news, admin and auto mode modules need a store")
	}
	if cfg.Modules.Wiki && deps.Wiki == nil {
		return nil, errors.New("wiki module enabled without a wiki client")
	}
	if cfg.Modules.YouTube && deps.YouTube == nil {
		return nil, errors.New("youtube module enabled without a youtube client")
	}

	r := &Registry{log: deps.Log}
	var limiter *rate.Limiter
	if cfg.Lookups.PerMinute > 0 {
		burst := cfg.Lookups.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.Lookups.PerMinute)/60), burst)
	}
	timeout := cfg.Lookups.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	add := func(name string, requires access.Level, h MessageHandler) {
		r.messages = append(r.messages, entry{name: name, requires: requires, handler: h})
	}

	// placeholder, filled once every other module has contributed help
	help := &helpModule{}
	add("help", access.None, help)

	if cfg.Modules.News {
		add("news", access.None, &newsModule{store: deps.Store, fallback: cfg.News, log: deps.Log})
	}
	if cfg.Modules.NormalLinks {
		add("normal links", access.None, newLinksModule(cfg.Links, cfg.LinkKeywords()))
	}
	if cfg.Modules.SecretLinks {
		add("secret links", access.None, newSecretLinksModule(cfg.SecretLinks))
	}
	if cfg.Modules.Choose {
		add("choose", access.None, &chooseModule{rand: deps.Rand})
	}
	if cfg.Modules.Wiki {
		add("wiki", access.None, &wikiModule{
			wiki:    deps.Wiki,
			command: cfg.Wiki.Command,
			limiter: limiter,
			timeout: timeout,
			log:     deps.Log,
		})
	}
	if cfg.Modules.Calculator {
		add("calculator", access.None, calculatorModule{})
	}
	if cfg.Modules.Dice {
		add("dice", access.None, &diceModule{rand: deps.Rand})
	}
	if cfg.Modules.YouTube {
		add("youtube", access.None, &youtubeModule{
			videos:  deps.YouTube,
			limiter: limiter,
			timeout: timeout,
			log:     deps.Log,
		})
	}
	if cfg.Modules.Admin {
		add("admin", access.None, newAdminModule(cfg.Admins, deps.Store, deps.Log))
	}
	thresholds := moderation.Thresholds{
		NumTilKick: cfg.Moderation.RepeatsUntilKick,
		NumTilBan:  cfg.Moderation.KicksUntilBan,
	}
	if cfg.Modules.SpamFilter {
		add("spam filter", access.HalfOp, &spamFilter{tracker: moderation.NewSpamTracker(thresholds)})
	}
	if cfg.Modules.LanguageFilter {
		add("language filter", access.HalfOp, &languageFilter{
			tracker: moderation.NewLanguageTracker(thresholds, cfg.Moderation.BannedWords),
		})
	}

	if cfg.Modules.AutoMode {
		r.joins = append(r.joins, joinEntry{name: "auto mode", handler: &autoModeModule{store: deps.Store, log: deps.Log}})
	}

	for _, e := range r.messages {
		if h, ok := e.handler.(Helper); ok {
			help.entries = append(help.entries, h.Help()...)
		}
	}
	r.log.Info("Modules loaded", "modules", strings.Join(r.Names(), ", "))
	return r, nil
}

// Names lists the enabled modules in dispatch order.
func (r *Registry) Names() []string {
	var out []string
	for _, e := range r.messages {
		out = append(out, e.name)
	}
	for _, e := range r.joins {
		out = append(out, e.name)
	}
	return out
}

// HandleMessage runs every eligible module on m.
func (r *Registry) HandleMessage(ctx context.Context, b Bot, m *Message) {
	for _, e := range r.messages {
		if e.requires > access.None {
			if m.Private || !b.Joined(m.Channel) || b.Level(m.Channel, b.Nick()) < e.requires {
				continue
			}
		}
		e.handler.HandleMessage(ctx, b, m)
	}
}

// HandleJoin runs every join module on j.
func (r *Registry) HandleJoin(ctx context.Context, b Bot, j *Join) {
	for _, e := range r.joins {
		e.handler.HandleJoin(ctx, b, j)
	}
}
