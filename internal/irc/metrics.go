package irc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesSeen = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "snaibot_messages_seen",
	Help: "Number of PRIVMSGs received from other users",
}, []string{"kind"})
