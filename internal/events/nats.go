package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"school_fleet/internal/metrics"
)

// NATSPublisher publishes envelopes on `fleet.<event>` subjects.
type NATSPublisher struct {
	nc      *nats.Conn
	metrics *metrics.Collector
}

func NewNATSPublisher(url string, m *metrics.Collector) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("school-fleet"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSConnected.Set(0)
			}
			logrus.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSConnected.Set(1)
			}
			logrus.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSConnected.Set(0)
			}
			logrus.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSConnected.Set(1)
	}
	return &NATSPublisher{nc: nc, metrics: m}, nil
}

func (p *NATSPublisher) Publish(ev Event, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.nc.Publish(fmt.Sprintf("fleet.%s", subjectToken(string(ev))), b)
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
