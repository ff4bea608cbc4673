package modules

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/inconshreveable/log15.v2"

	"github.com/snaiperskaya/snaibot/internal/access"
	"github.com/snaiperskaya/snaibot/internal/config"
)

const (
	adminHelpOp = "The following administrative commands are available in %s: " +
		"Set modes (*v <nick>, *h <nick>, *o <nick>), " +
		"Un-set Modes (*dv <nick>, *dh <nick>, *do <nick>), " +
		"*kick <nick>, *join <channel>, *leave <channel>, *identify"
	adminHelpNotOp = "Bot not OPed in %s! The following administrative commands are available: " +
		"*join <channel>, *leave <channel>, *identify"
	adminHelpBasic = "The following administrative commands are available: " +
		"*join <channel>, *leave <channel>, *identify"
	invalidChannel = "Not a valid channel..."
)

// modeCommands maps "*v" style commands to the mode they touch and whether
// they set or unset it.
var modeCommands = map[string]struct {
	mode rune
	set  bool
}{
	"*v":  {'v', true},
	"*h":  {'h', true},
	"*o":  {'o', true},
	"*dv": {'v', false},
	"*dh": {'h', false},
	"*do": {'o', false},
}

// adminModule lets configured admins and channel ops drive the bot from
// chat. Relayed lines are never trusted here, only the real sender counts.
type adminModule struct {
	admins map[string]bool
	store  Store
	log    log15.Logger
}

func newAdminModule(admins []string, store Store, log log15.Logger) *adminModule {
	a := &adminModule{admins: make(map[string]bool), store: store, log: log}
	for _, nick := range admins {
		a.admins[strings.ToLower(nick)] = true
	}
	return a
}

func (a *adminModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	fields := strings.Fields(m.Text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "*") {
		return
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	inChannel := !m.Private && b.Joined(m.Channel)
	botOp := inChannel && b.Level(m.Channel, b.Nick()) >= access.Op

	switch cmd {
	case "*admin", "*identify", "*join", "*leave", "*kick":
	default:
		if _, ok := modeCommands[cmd]; !ok {
			return
		}
	}
	if !a.authorized(b, m, inChannel) {
		return
	}
	commandsHandled.WithLabelValues("admin").Inc()
	a.log.Info("Admin command", "from", m.Hostmask(), "channel", m.Channel, "command", m.Text)
	if err := a.store.LogCommand(ctx, m.Hostmask(), m.Text); err != nil {
		a.log.Error("Failed to write audit log", "err", err)
	}

	switch cmd {
	case "*admin":
		switch {
		case botOp:
			b.Say(m.Nick, fmt.Sprintf(adminHelpOp, m.Channel))
		case inChannel:
			b.Say(m.Nick, fmt.Sprintf(adminHelpNotOp, m.Channel))
		default:
			b.Say(m.Nick, adminHelpBasic)
		}
	case "*identify":
		b.Identify()
	case "*join", "*leave":
		if len(args) == 0 || !config.IsChannel(args[0]) {
			b.Say(m.Nick, invalidChannel)
			return
		}
		if cmd == "*join" {
			b.Join(args[0])
		} else {
			b.Part(args[0])
		}
	case "*kick":
		if !botOp {
			return
		}
		for _, nick := range args {
			b.Kick(m.Channel, nick, "Requested by "+m.Nick)
		}
	default:
		if !botOp {
			return
		}
		mc := modeCommands[cmd]
		for _, nick := range args {
			stored := string(mc.mode)
			if mc.set {
				b.SetMode(m.Channel, nick, mc.mode)
			} else {
				b.UnsetMode(m.Channel, nick, mc.mode)
				stored = "-" + stored
			}
			if err := a.store.UpdateChanMode(ctx, m.Channel, nick, stored); err != nil {
				a.log.Error("Failed to remember mode", "channel", m.Channel, "nick", nick, "mode", stored, "err", err)
			}
		}
	}
}

// authorized allows config admins anywhere and channel ops in their channel.
func (a *adminModule) authorized(b Bot, m *Message, inChannel bool) bool {
	if a.admins[strings.ToLower(m.Nick)] {
		return true
	}
	return inChannel && b.Level(m.Channel, m.Nick) >= access.Op
}

// autoModeModule restores remembered modes when people join.
type autoModeModule struct {
	store Store
	log   log15.Logger
}

func (a *autoModeModule) HandleJoin(ctx context.Context, b Bot, j *Join) {
	mode, err := a.store.ChanMode(ctx, j.Channel, j.Nick)
	if err != nil {
		a.log.Error("Failed to look up mode", "channel", j.Channel, "nick", j.Nick, "err", err)
		return
	}

	need := access.Op
	switch mode {
	case "v":
		need = access.HalfOp
	case "h", "o":
	default:
		return
	}
	if b.Level(j.Channel, b.Nick()) < need {
		a.log.Debug("Not enough access to restore mode", "channel", j.Channel, "nick", j.Nick, "mode", mode)
		return
	}
	commandsHandled.WithLabelValues("auto mode").Inc()
	b.SetMode(j.Channel, j.Nick, rune(mode[0]))
}
