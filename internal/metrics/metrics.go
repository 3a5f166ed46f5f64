/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package metrics exposes station counters to prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registry *prometheus.Registry

	ResolverLookups  *prometheus.CounterVec
	MessagesSent     prometheus.Counter
	SendErrors       prometheus.Counter
	MessagesReceived *prometheus.CounterVec
	Exchanges        *prometheus.CounterVec
}

// New creates the station metrics on a private registry, so several
// instances may coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		ResolverLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itss_resolver_lookups_total",
				Help: "Certificate lookups by the tier that answered them.",
			},
			[]string{"tier"},
		),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "itss_messages_sent_total",
			Help: "Secure messages broadcast.",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "itss_send_errors_total",
			Help: "Outbound messages that could not be built or sent.",
		}),
		MessagesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itss_messages_received_total",
				Help: "Inbound datagrams by verification result.",
			},
			[]string{"result"},
		),
		Exchanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itss_pki_exchanges_total",
				Help: "Enrollment and authorization exchanges by outcome.",
			},
			[]string{"kind", "outcome"},
		),
	}
}

func (m *Metrics) RecordLookup(tier string) {
	if m == nil {
		return
	}
	m.ResolverLookups.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordSent(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SendErrors.Inc()
		return
	}
	m.MessagesSent.Inc()
}

func (m *Metrics) RecordReceived(result string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordExchange(kind, outcome string) {
	if m == nil {
		return
	}
	m.Exchanges.WithLabelValues(kind, outcome).Inc()
}
