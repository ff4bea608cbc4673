package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"github.com/pkg/errors"
	"gopkg.in/inconshreveable/log15.v2"

	"github.com/snaiperskaya/snaibot/internal/access"
	"github.com/snaiperskaya/snaibot/internal/config"
	"github.com/snaiperskaya/snaibot/internal/modules"
	"github.com/snaiperskaya/snaibot/internal/storage"
)

// Version information (set at build time or here)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Dispatcher receives channel events. modules.Registry implements it.
type Dispatcher interface {
	HandleMessage(ctx context.Context, b modules.Bot, m *modules.Message)
	HandleJoin(ctx context.Context, b modules.Bot, j *modules.Join)
}

// Store is the persistence the client itself needs for owner commands.
type Store interface {
	LogCommand(ctx context.Context, hostmask, command string) error
	RecentCommands(ctx context.Context, n int) ([]storage.CommandLog, error)
}

// sender is the outbound half of ircevent.Connection.
type sender interface {
	Send(command string, params ...string) error
	Privmsg(target, text string) error
	Join(channel string) error
	Part(channel string) error
	SetNick(n string)
	CurrentNick() string
}

// Client represents the IRC bot client
type Client struct {
	conn     *ircevent.Connection
	out      sender
	cfg      *config.Config
	log      log15.Logger
	store    Store
	dispatch Dispatcher
	roster   *Roster
	ctx      context.Context

	mu         sync.Mutex
	recovering bool

	// Shutdown/restart callbacks
	OnShutdown func()
	OnRestart  func()
}

// NewClient creates a new IRC client. ctx bounds the lookups and database
// calls made while handling events.
func NewClient(ctx context.Context, cfg *config.Config, store Store, dispatch Dispatcher, log log15.Logger) (*Client, error) {
	if dispatch == nil {
		return nil, errors.New("irc client needs a dispatcher")
	}
	c := &Client{
		cfg:      cfg,
		log:      log,
		store:    store,
		dispatch: dispatch,
		roster:   NewRoster(),
		ctx:      ctx,
	}

	conn := &ircevent.Connection{
		Server:      fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Nick:        cfg.Server.Nick,
		User:        cfg.Server.Username,
		RealName:    cfg.Server.IRCName,
		Password:    cfg.Server.ServerPass,
		RequestCaps: []string{"multi-prefix", "userhost-in-names"},
		QuitMessage: "Shutting down",
		Debug:       false,
		UseTLS:      cfg.Server.TLS,
		TLSConfig:   &tls.Config{InsecureSkipVerify: cfg.Server.TLSInsecure},
	}
	c.conn = conn
	c.out = conn

	c.registerHandlers()

	return c, nil
}

func (c *Client) registerHandlers() {
	// Connected (end of MOTD)
	c.conn.AddCallback("376", c.onConnect)
	c.conn.AddCallback("422", c.onConnect) // MOTD missing is also "connected"
	c.conn.AddCallback("005", c.onISupport)

	c.conn.AddCallback("PRIVMSG", c.onPrivMsg)

	// Channel state
	c.conn.AddCallback("JOIN", c.onJoin)
	c.conn.AddCallback("PART", c.onPart)
	c.conn.AddCallback("KICK", c.onKick)
	c.conn.AddCallback("QUIT", c.onQuit)
	c.conn.AddCallback("NICK", c.onNick)
	c.conn.AddCallback("MODE", c.onMode)
	c.conn.AddCallback("353", c.onNames) // RPL_NAMREPLY

	// Nick issues
	c.conn.AddCallback("432", c.onNickHeld)  // ERR_ERRONEUSNICKNAME
	c.conn.AddCallback("433", c.onNickInUse) // ERR_NICKNAMEINUSE

	// CTCP VERSION
	c.conn.AddCallback("CTCP_VERSION", c.onCtcpVersion)
}

// Connect initiates the IRC connection
func (c *Client) Connect() error {
	return c.conn.Connect()
}

// Loop runs the IRC event loop (blocking)
func (c *Client) Loop() {
	c.conn.Loop()
}

// Quit disconnects from IRC
func (c *Client) Quit(message string) {
	c.conn.QuitMessage = message
	c.conn.Quit()
}

// Roster exposes the tracked channel state.
func (c *Client) Roster() *Roster {
	return c.roster
}

func (c *Client) onConnect(e ircmsg.Message) {
	c.log.Info("Connected to IRC server", "server", c.cfg.Server.Host)

	// a reconnect starts from scratch
	c.roster.Reset()
	c.applyISupport()
	c.Identify()

	delay := c.cfg.Server.JoinDelay
	channels := c.cfg.Server.Channels
	time.AfterFunc(delay, func() {
		for _, ch := range channels {
			c.Join(ch)
		}
	})

	c.log.Info("Bot initialization complete", "join_delay", delay, "channels", strings.Join(channels, ","))
}

func (c *Client) onISupport(e ircmsg.Message) {
	c.applyISupport()
}

func (c *Client) applyISupport() {
	if c.conn == nil {
		return
	}
	tokens := c.conn.ISupport()
	c.roster.SetISupport(tokens["PREFIX"], tokens["CHANMODES"])
}

func (c *Client) isSelf(nick string) bool {
	return foldName(nick) == foldName(c.out.CurrentNick())
}

func (c *Client) onPrivMsg(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}

	target := e.Params[0]
	text := e.Params[1]
	nick := e.Nick()
	if nick == "" || c.isSelf(nick) {
		return
	}
	nuh, err := e.NUH()
	if err != nil {
		return
	}
	identity := nuh.User + "@" + nuh.Host
	private := !config.IsChannel(target)
	messagesSeen.WithLabelValues(messageKind(private)).Inc()

	if private && c.handleOwnerCommand(nick, nick+"!"+identity, text) {
		return
	}

	m := modules.NewMessage(target, nick, identity, text, private)
	c.dispatch.HandleMessage(c.ctx, c, m)
}

func messageKind(private bool) string {
	if private {
		return "private"
	}
	return "channel"
}

func (c *Client) onJoin(e ircmsg.Message) {
	if len(e.Params) < 1 {
		return
	}
	channel := e.Params[0]
	nick := e.Nick()
	if c.isSelf(nick) {
		c.log.Info("Joined channel", "channel", channel)
		c.roster.AddChannel(channel)
		return
	}
	c.roster.Join(channel, nick)

	nuh, err := e.NUH()
	if err != nil {
		return
	}
	c.dispatch.HandleJoin(c.ctx, c, &modules.Join{
		Channel:  channel,
		Nick:     nick,
		Identity: nuh.User + "@" + nuh.Host,
	})
}

func (c *Client) onPart(e ircmsg.Message) {
	if len(e.Params) < 1 {
		return
	}
	c.left(e.Params[0], e.Nick())
}

func (c *Client) onKick(e ircmsg.Message) {
	// KICK <channel> <nick> [:reason]
	if len(e.Params) < 2 {
		return
	}
	if c.isSelf(e.Params[1]) {
		c.log.Warn("Kicked from channel", "channel", e.Params[0], "by", e.Nick())
	}
	c.left(e.Params[0], e.Params[1])
}

func (c *Client) left(channel, nick string) {
	if c.isSelf(nick) {
		c.log.Info("Left channel", "channel", channel)
		c.roster.RemoveChannel(channel)
		return
	}
	c.roster.Part(channel, nick)
}

func (c *Client) onQuit(e ircmsg.Message) {
	c.roster.Quit(e.Nick())
}

func (c *Client) onNick(e ircmsg.Message) {
	if len(e.Params) < 1 {
		return
	}
	c.roster.Rename(e.Nick(), e.Params[0])
}

func (c *Client) onMode(e ircmsg.Message) {
	// MODE <channel> <change> [args...]
	if len(e.Params) < 2 || !config.IsChannel(e.Params[0]) {
		return
	}
	c.roster.Mode(e.Params[0], e.Params[1], e.Params[2:])
}

func (c *Client) onNames(e ircmsg.Message) {
	// 353 <me> <symbol> <channel> :<names>
	if len(e.Params) < 4 {
		return
	}
	c.roster.Names(e.Params[2], strings.Fields(e.Params[3]))
}

func (c *Client) onNickHeld(e ircmsg.Message) {
	c.useAlternate("RELEASE", "Nick is held")
}

func (c *Client) onNickInUse(e ircmsg.Message) {
	c.useAlternate("GHOST", "Nick in use")
}

// useAlternate switches to the alternate nick and, when a NickServ password
// is configured, schedules recovery of the primary one.
func (c *Client) useAlternate(verb, why string) {
	if c.out.CurrentNick() == c.cfg.Server.Alternate {
		return
	}
	c.log.Warn(why+", switching to alternate", "nick", c.cfg.Server.Nick, "alternate", c.cfg.Server.Alternate)
	c.out.SetNick(c.cfg.Server.Alternate)

	if c.cfg.Server.NickPass == "" {
		return
	}
	c.mu.Lock()
	if c.recovering {
		c.mu.Unlock()
		return
	}
	c.recovering = true
	c.mu.Unlock()

	// Schedule nick recovery
	go func() {
		defer func() {
			c.mu.Lock()
			c.recovering = false
			c.mu.Unlock()
		}()
		time.Sleep(15 * time.Second)
		c.say("NickServ", fmt.Sprintf("%s %s %s", verb, c.cfg.Server.Nick, c.cfg.Server.NickPass))
		time.Sleep(2 * time.Second)
		c.out.SetNick(c.cfg.Server.Nick)
	}()
}

func (c *Client) onCtcpVersion(e ircmsg.Message) {
	nick := e.Nick()
	reply := fmt.Sprintf("snaibot %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	c.send("NOTICE", nick, "\x01VERSION "+reply+"\x01")
}

func (c *Client) say(target, text string) {
	if err := c.out.Privmsg(target, text); err != nil {
		c.log.Warn("Failed to send message", "target", target, "err", err)
	}
}

func (c *Client) send(command string, params ...string) {
	if err := c.out.Send(command, params...); err != nil {
		c.log.Warn("Failed to send command", "command", command, "err", err)
	}
}

// Nick is the bot's current nick.
func (c *Client) Nick() string { return c.out.CurrentNick() }

// Joined reports whether the bot is in channel.
func (c *Client) Joined(channel string) bool { return c.roster.Joined(channel) }

// Level is nick's privilege in channel.
func (c *Client) Level(channel, nick string) access.Level { return c.roster.Level(channel, nick) }

// Say sends a PRIVMSG.
func (c *Client) Say(target, text string) { c.say(target, text) }

// Kick removes nick from channel.
func (c *Client) Kick(channel, nick, reason string) {
	c.log.Info("Kicking", "channel", channel, "nick", nick, "reason", reason)
	c.send("KICK", channel, nick, reason)
}

// Ban sets +b mask on channel.
func (c *Client) Ban(channel, mask string) {
	c.log.Info("Banning", "channel", channel, "mask", mask)
	c.send("MODE", channel, "+b", mask)
}

// SetMode gives nick a prefix mode.
func (c *Client) SetMode(channel, nick string, mode rune) {
	c.send("MODE", channel, "+"+string(mode), nick)
}

// UnsetMode takes a prefix mode away from nick.
func (c *Client) UnsetMode(channel, nick string, mode rune) {
	c.send("MODE", channel, "-"+string(mode), nick)
}

// Join joins channel.
func (c *Client) Join(channel string) {
	if err := c.out.Join(channel); err != nil {
		c.log.Warn("Failed to join", "channel", channel, "err", err)
	}
}

// Part leaves channel.
func (c *Client) Part(channel string) {
	if err := c.out.Part(channel); err != nil {
		c.log.Warn("Failed to part", "channel", channel, "err", err)
	}
}

// Identify to NickServ
func (c *Client) Identify() {
	if c.cfg.Server.NickPass == "" {
		return
	}
	c.say("NickServ", fmt.Sprintf("IDENTIFY %s %s", c.cfg.Server.Nick, c.cfg.Server.NickPass))
}

var _ modules.Bot = (*Client)(nil)
