package modules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "snaibot_commands_handled",
	Help: "Number of commands answered, by module",
}, []string{"module"})

var moderationActions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "snaibot_moderation_actions",
	Help: "Number of warnings, kicks and bans issued, by filter",
}, []string{"filter", "action"})

var lookupErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "snaibot_lookup_errors",
	Help: "Number of failed wiki and youtube lookups",
}, []string{"service"})

var lookupsThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "snaibot_lookups_throttled",
	Help: "Number of lookups dropped by the rate limiter",
}, []string{"service"})
