package irc

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/snaiperskaya/snaibot/internal/access"
)

const defaultChanModes = "beI,k,l,imnpst"

// Roster tracks the channels the bot is in and the prefix modes of everyone
// in them. It answers the privilege questions the modules ask.
type Roster struct {
	mu        sync.RWMutex
	prefixes  access.Prefixes
	listModes string // CHANMODES type A, always take a parameter
	keyModes  string // type B, always take a parameter
	setModes  string // type C, take a parameter only when set
	channels  map[string]*channelState
}

type channelState struct {
	name    string
	members map[string]*memberState
}

type memberState struct {
	nick  string
	modes map[rune]bool
}

func (m *memberState) level() access.Level {
	lvl := access.None
	for mode := range m.modes {
		if l, ok := access.FromMode(mode); ok && l > lvl {
			lvl = l
		}
	}
	return lvl
}

// NewRoster creates an empty roster using the default PREFIX and CHANMODES.
func NewRoster() *Roster {
	r := &Roster{channels: make(map[string]*channelState)}
	r.SetISupport("", "")
	return r
}

// foldName lower-cases a nick or channel with rfc1459 casemapping.
func foldName(s string) string {
	s = cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '[':
			return '{'
		case ']':
			return '}'
		case '\\':
			return '|'
		case '^':
			return '~'
		}
		return r
	}, s)
}

// SetISupport applies the PREFIX and CHANMODES tokens. Empty values keep the
// defaults.
func (r *Roster) SetISupport(prefix, chanModes string) {
	if chanModes == "" {
		chanModes = defaultChanModes
	}
	types := strings.SplitN(chanModes, ",", 4)
	for len(types) < 4 {
		types = append(types, "")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = access.ParsePrefixes(prefix)
	r.listModes, r.keyModes, r.setModes = types[0], types[1], types[2]
}

// AddChannel starts tracking a channel the bot joined.
func (r *Roster) AddChannel(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := foldName(channel)
	if _, ok := r.channels[key]; !ok {
		r.channels[key] = &channelState{name: channel, members: make(map[string]*memberState)}
	}
}

// RemoveChannel forgets a channel the bot left.
func (r *Roster) RemoveChannel(channel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, foldName(channel))
}

// Reset forgets everything, e.g. after a disconnect.
func (r *Roster) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string]*channelState)
}

// Joined reports whether the bot is in channel.
func (r *Roster) Joined(channel string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[foldName(channel)]
	return ok
}

// Channels lists joined channels, sorted.
func (r *Roster) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch.name)
	}
	sort.Strings(out)
	return out
}

// Join adds nick to a tracked channel.
func (r *Roster) Join(channel, nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[foldName(channel)]; ok {
		ch.member(nick)
	}
}

func (ch *channelState) member(nick string) *memberState {
	key := foldName(nick)
	m, ok := ch.members[key]
	if !ok {
		m = &memberState{nick: nick, modes: make(map[rune]bool)}
		ch.members[key] = m
	}
	return m
}

// Part removes nick from channel.
func (r *Roster) Part(channel, nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[foldName(channel)]; ok {
		delete(ch.members, foldName(nick))
	}
}

// Quit removes nick from every channel.
func (r *Roster) Quit(nick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := foldName(nick)
	for _, ch := range r.channels {
		delete(ch.members, key)
	}
}

// Rename follows a nick change in every channel.
func (r *Roster) Rename(oldNick, newNick string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oldKey, newKey := foldName(oldNick), foldName(newNick)
	for _, ch := range r.channels {
		m, ok := ch.members[oldKey]
		if !ok {
			continue
		}
		delete(ch.members, oldKey)
		m.nick = newNick
		ch.members[newKey] = m
	}
}

// Names records a RPL_NAMREPLY batch. Entries may carry several prefix
// symbols when multi-prefix is enabled.
func (r *Roster) Names(channel string, entries []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[foldName(channel)]
	if !ok {
		return
	}
	for _, entry := range entries {
		nick, modes := r.prefixes.Split(entry)
		// userhost-in-names
		if i := strings.IndexByte(nick, '!'); i >= 0 {
			nick = nick[:i]
		}
		if nick == "" {
			continue
		}
		m := ch.member(nick)
		m.modes = make(map[rune]bool)
		for _, mode := range modes {
			m.modes[mode] = true
		}
	}
}

// Mode applies a channel MODE change such as "+ov-h" with its arguments.
func (r *Roster) Mode(channel, change string, args []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[foldName(channel)]
	if !ok {
		return
	}

	adding := true
	for _, mode := range change {
		switch {
		case mode == '+':
			adding = true
			continue
		case mode == '-':
			adding = false
			continue
		}

		if !r.takesParam(mode, adding) {
			continue
		}
		if len(args) == 0 {
			return
		}
		arg := args[0]
		args = args[1:]

		if !r.prefixes.IsMode(mode) {
			continue
		}
		m, ok := ch.members[foldName(arg)]
		if !ok {
			continue
		}
		if adding {
			m.modes[mode] = true
		} else {
			delete(m.modes, mode)
		}
	}
}

func (r *Roster) takesParam(mode rune, adding bool) bool {
	switch {
	case r.prefixes.IsMode(mode):
		return true
	case strings.ContainsRune(r.listModes, mode), strings.ContainsRune(r.keyModes, mode):
		return true
	case strings.ContainsRune(r.setModes, mode):
		return adding
	}
	return false
}

// Level returns nick's privilege in channel. Unknown channels and nicks are
// access.None.
func (r *Roster) Level(channel, nick string) access.Level {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[foldName(channel)]
	if !ok {
		return access.None
	}
	m, ok := ch.members[foldName(nick)]
	if !ok {
		return access.None
	}
	return m.level()
}
