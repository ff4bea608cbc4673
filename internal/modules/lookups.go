package modules

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	"gopkg.in/inconshreveable/log15.v2"

	"github.com/snaiperskaya/snaibot/internal/lookup"
	"github.com/snaiperskaya/snaibot/internal/moderation"
)

// WikiSearcher is the part of lookup.Wiki the wiki module uses.
type WikiSearcher interface {
	Search(ctx context.Context, term string) ([]string, error)
	BaseURL() string
	PageURL(title string) string
}

// VideoLookup is the part of lookup.YouTube the youtube module uses.
type VideoLookup interface {
	Video(ctx context.Context, id string) (*lookup.Video, error)
}

// async runs lookups off the connection's read loop.
func async(f func()) { go f() }

// allow reports whether a lookup may go out now. A nil limiter allows
// everything.
func allow(limiter *rate.Limiter, service string) bool {
	if limiter == nil || limiter.Allow() {
		return true
	}
	lookupsThrottled.WithLabelValues(service).Inc()
	return false
}

// wikiModule searches page titles on the configured wiki.
type wikiModule struct {
	wiki    WikiSearcher
	command string
	limiter *rate.Limiter
	timeout time.Duration
	log     log15.Logger
	spawn   func(func())
}

func (w *wikiModule) Help() []string {
	return []string{fmt.Sprintf("*%s <searchterm>, *full%s <searchterm>", w.command, w.command)}
}

func (w *wikiModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	full := true
	term, ok := command(m, "full"+w.command)
	if !ok {
		full = false
		if term, ok = command(m, w.command); !ok {
			return
		}
	}
	commandsHandled.WithLabelValues("wiki").Inc()

	if term == "" {
		reply(b, m, w.wiki.BaseURL())
		return
	}
	if !allow(w.limiter, "wiki") {
		return
	}

	spawn := w.spawn
	if spawn == nil {
		spawn = async
	}
	spawn(func() {
		ctx, cancel := context.WithTimeout(ctx, w.timeout)
		defer cancel()
		w.search(ctx, b, m, term, full)
	})
}

func (w *wikiModule) search(ctx context.Context, b Bot, m *Message, term string, full bool) {
	query := lookup.TitleCase(term)
	titles, err := w.wiki.Search(ctx, query)
	if err != nil {
		lookupErrors.WithLabelValues("wiki").Inc()
		w.log.Warn("Wiki search failed", "term", query, "err", err)
		return
	}
	if len(titles) == 0 {
		reply(b, m, "No results found. If this page should exist, please consider contributing to the wiki! "+w.wiki.BaseURL())
		return
	}

	if full {
		b.Say(m.Nick, "Full search results for "+query)
		for _, title := range titles {
			b.Say(m.Nick, w.result(title))
		}
		return
	}
	for _, title := range titles {
		if strings.EqualFold(title, term) {
			reply(b, m, "Exact Match Found! "+w.result(title))
			return
		}
	}
	reply(b, m, w.result(titles[0]))
}

func (w *wikiModule) result(title string) string {
	return title + "  -  " + w.wiki.PageURL(title)
}

// youtubeModule describes every YouTube link posted in a channel.
type youtubeModule struct {
	videos  VideoLookup
	limiter *rate.Limiter
	timeout time.Duration
	log     log15.Logger
	spawn   func(func())
}

func (y *youtubeModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	seen := make(map[string]bool)
	var ids []string
	for _, field := range strings.Fields(m.Body) {
		id, ok := lookup.VideoID(field)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}

	spawn := y.spawn
	if spawn == nil {
		spawn = async
	}
	for _, id := range ids {
		if !allow(y.limiter, "youtube") {
			return
		}
		commandsHandled.WithLabelValues("youtube").Inc()
		spawn(func() {
			ctx, cancel := context.WithTimeout(ctx, y.timeout)
			defer cancel()
			y.describe(ctx, b, m, id)
		})
	}
}

func (y *youtubeModule) describe(ctx context.Context, b Bot, m *Message, id string) {
	v, err := y.videos.Video(ctx, id)
	if errors.Is(err, lookup.ErrVideoNotFound) {
		y.log.Debug("No such video", "id", id)
		return
	}
	if err != nil {
		lookupErrors.WithLabelValues("youtube").Inc()
		y.log.Warn("Video lookup failed", "id", id, "err", err)
		return
	}
	b.Say(m.ReplyTarget(), FormatVideo(v))
}

// FormatVideo renders the one-line summary posted for a video.
func FormatVideo(v *lookup.Video) string {
	title := moderation.StripNonPrintable(v.Title)
	if title == "" {
		title = "Error retrieving title"
	}
	author := moderation.StripNonPrintable(v.Author)
	if author == "" {
		author = "Error retrieving author"
	}
	duration := "N/A"
	if v.Duration > 0 {
		duration = lookup.FormatDuration(v.Duration)
	}
	return fmt.Sprintf("\"%s\" by %s ( Views: %s   Likes: %s   Duration: %s )",
		title, author, count(v.Views), count(v.Likes), duration)
}

func count(n *int64) string {
	if n == nil {
		return "N/A"
	}
	return strconv.FormatInt(*n, 10)
}
