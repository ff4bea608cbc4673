package modules

import (
	"context"
	"strings"
)

var helpTriggers = map[string]bool{
	".help":     true,
	".commands": true,
	".options":  true,
	"*help":     true,
	"*commands": true,
	"*options":  true,
}

// helpModule lists the public commands of every enabled module.
type helpModule struct {
	entries []string
}

func (h *helpModule) HandleMessage(ctx context.Context, b Bot, m *Message) {
	if !helpTriggers[strings.TrimSpace(m.Lower)] {
		return
	}
	commandsHandled.WithLabelValues("help").Inc()
	reply(b, m, h.text())
}

func (h *helpModule) text() string {
	return strings.Join(append([]string{"*commands", "*help"}, h.entries...), ", ")
}
