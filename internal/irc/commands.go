package irc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultAuditLines = 10

// handleOwnerCommand processes the private commands that control the bot
// process itself. It reports whether text was one of them.
func (c *Client) handleOwnerCommand(nick, hostmask, text string) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}

	switch strings.ToLower(fields[0]) {
	case "*version":
		c.cmdVersion(nick, hostmask, text)
	case "*audit":
		c.cmdAudit(nick, hostmask, fields)
	case "*nick":
		c.cmdNick(nick, hostmask, fields)
	case "*restart":
		c.cmdRestart(nick, hostmask, text)
	case "*shutdown":
		c.cmdShutdown(nick, hostmask, text)
	default:
		return false
	}
	return true
}

func (c *Client) isAdmin(nick string) bool {
	for _, admin := range c.cfg.Admins {
		if foldName(admin) == foldName(nick) {
			return true
		}
	}
	return false
}

func (c *Client) logCommand(hostmask, command string) {
	if c.store == nil {
		return
	}
	if err := c.store.LogCommand(c.ctx, hostmask, command); err != nil {
		c.log.Error("Error saving audit log", "err", err)
	}
}

func (c *Client) cmdVersion(nick, hostmask, message string) {
	c.logCommand(hostmask, message)

	c.say(nick, fmt.Sprintf("snaibot version %s", Version))
	c.say(nick, fmt.Sprintf("Built: %s", BuildDate))
	c.say(nick, fmt.Sprintf("Commit: %s", GitCommit))
}

func (c *Client) cmdAudit(nick, hostmask string, fields []string) {
	if !c.isAdmin(nick) {
		c.say(nick, "Sorry, only my admins can read the audit log")
		c.logCommand(hostmask, "tried to read the audit log")
		return
	}
	c.logCommand(hostmask, strings.Join(fields, " "))

	count := defaultAuditLines
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
			count = n
		}
	}
	if c.store == nil {
		c.say(nick, "No audit log is kept")
		return
	}
	entries, err := c.store.RecentCommands(c.ctx, count)
	if err != nil {
		c.log.Error("Failed to read audit log", "err", err)
		c.say(nick, "Error reading the audit log")
		return
	}

	c.say(nick, fmt.Sprintf("The last \x02%d\x02 admin commands:", len(entries)))
	for _, e := range entries {
		at := e.At.UTC().Format("Mon Jan 02, 2006 at 15:04:05 GMT")
		c.say(nick, fmt.Sprintf("%s: %s -> %s", at, e.Hostmask, e.Command))
	}
}

func (c *Client) cmdNick(nick, hostmask string, fields []string) {
	newNick := ""
	if len(fields) > 1 {
		newNick = fields[1]
	}

	if !c.isAdmin(nick) {
		c.say(nick, "Sorry, only my admins can change my nick")
		c.logCommand(hostmask, fmt.Sprintf("nick change command to %s, not an admin", newNick))
		return
	}

	if newNick == "" {
		c.say(nick, "Usage: *nick <newnick>")
		return
	}

	c.out.SetNick(newNick)
	time.AfterFunc(time.Second, func() {
		c.say(nick, fmt.Sprintf("Changed nick to %s", c.out.CurrentNick()))
	})
	c.logCommand(hostmask, fmt.Sprintf("nick change command to %s", newNick))
}

func (c *Client) cmdRestart(nick, hostmask, message string) {
	if !c.isAdmin(nick) {
		c.say(nick, "Sorry, only my admins can restart me")
		c.logCommand(hostmask, "issued the restart command but isn't an admin")
		return
	}

	c.logCommand(hostmask, message)
	c.say(nick, "Restarting")

	if c.OnRestart != nil {
		c.OnRestart()
	}
}

func (c *Client) cmdShutdown(nick, hostmask, message string) {
	if !c.isAdmin(nick) {
		c.say(nick, "Sorry, only my admins can shut me down")
		c.logCommand(hostmask, "issued the shutdown command but isn't an admin")
		return
	}

	c.logCommand(hostmask, message)
	c.say(nick, "Shutting down")

	if c.OnShutdown != nil {
		c.OnShutdown()
	}
}
