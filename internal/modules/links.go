package modules

import (
	"context"
	"math/rand/v2"
	"strings"

	"gopkg.in/inconshreveable/log15.v2"

	"github.com/snaiperskaya/snaibot/internal/access"
)

// newsModule shows the current news item and lets ops replace it.
type newsModule struct {
	store    Store
	fallback string
	log      log15.Logger
}

func (n *newsModule) Help() []string { return []string{"*news"} }

func (n *newsModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	args, ok := command(m, "news")
	if !ok {
		return
	}
	commandsHandled.WithLabelValues("news").Inc()

	verb, text, _ := strings.Cut(args, " ")
	if strings.EqualFold(verb, "edit") && !m.Private && b.Level(m.Channel, m.Nick) >= access.Op {
		text = strings.TrimSpace(text)
		if err := n.store.SetNews(ctx, text, m.Hostmask()); err != nil {
			n.log.Error("Failed to store news", "setter", m.Hostmask(), "err", err)
			return
		}
		n.log.Info("News updated", "setter", m.Hostmask())
		b.Say(m.ReplyTarget(), "News Updated!")
		return
	}

	b.Say(m.ReplyTarget(), n.current(ctx))
}

func (n *newsModule) current(ctx context.Context) string {
	news, ok, err := n.store.News(ctx)
	if err != nil {
		n.log.Error("Failed to read news", "err", err)
		return n.fallback
	}
	if !ok {
		return n.fallback
	}
	return news.Text
}

// linksModule answers "*keyword" with a canned line.
type linksModule struct {
	links    map[string]string
	keywords []string
}

func newLinksModule(links map[string]string, keywords []string) *linksModule {
	return &linksModule{links: lowerKeys(links), keywords: keywords}
}

func (l *linksModule) Help() []string {
	out := make([]string, 0, len(l.keywords))
	for _, k := range l.keywords {
		out = append(out, "*"+strings.ToLower(k))
	}
	return out
}

func (l *linksModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	text, ok := lookupKeyword(l.links, m)
	if !ok {
		return
	}
	commandsHandled.WithLabelValues("links").Inc()
	reply(b, m, text)
}

// secretLinksModule works like linksModule but only ever answers in private
// and is left out of *help.
type secretLinksModule struct {
	links map[string]string
}

func newSecretLinksModule(links map[string]string) *secretLinksModule {
	return &secretLinksModule{links: lowerKeys(links)}
}

func (s *secretLinksModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	text, ok := lookupKeyword(s.links, m)
	if !ok {
		return
	}
	commandsHandled.WithLabelValues("secret links").Inc()
	b.Say(m.Nick, m.Speaker+": "+text)
	b.Say(m.Nick, "Shhh... It's a seekrit!")
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

// lookupKeyword matches a body that is exactly "*keyword".
func lookupKeyword(links map[string]string, m *Message) (string, bool) {
	body := strings.TrimSpace(m.Lower)
	if len(body) < 2 || body[0] != '*' {
		return "", false
	}
	text, ok := links[body[1:]]
	return text, ok
}

// chooseModule picks one of a semicolon separated list of options.
type chooseModule struct {
	rand *rand.Rand
}

func (c *chooseModule) Help() []string { return []string{"*choose <opt1;opt2;etc>"} }

func (c *chooseModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	args, ok := command(m, "choose")
	if !ok {
		return
	}
	var options []string
	for _, opt := range strings.Split(args, ";") {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) == 0 {
		return
	}
	commandsHandled.WithLabelValues("choose").Inc()
	reply(b, m, "I think you should pick...    "+options[c.rand.IntN(len(options))])
}
