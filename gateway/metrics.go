// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/luxfi/metric"
)

type metrics struct {
	numSubmessages, numExecuted, numExecutionFailures metric.Counter

	numOutboundSent, numRecoveries metric.Counter
}

// Counters self-register when created with NewCounter.
func newMetrics() *metrics {
	m := &metrics{}

	m.numSubmessages = metric.NewCounter(metric.CounterOpts{
		Name: "gateway_inbound_submessages",
		Help: "Number of inbound submessages processed",
	})
	m.numExecuted = metric.NewCounter(metric.CounterOpts{
		Name: "gateway_messages_executed",
		Help: "Number of messages executed after reaching quorum",
	})
	m.numExecutionFailures = metric.NewCounter(metric.CounterOpts{
		Name: "gateway_execution_failures",
		Help: "Number of inbound handler failures, entries kept pending",
	})
	m.numOutboundSent = metric.NewCounter(metric.CounterOpts{
		Name: "gateway_outbound_sent",
		Help: "Number of outbound messages handed to router transports",
	})
	m.numRecoveries = metric.NewCounter(metric.CounterOpts{
		Name: "gateway_message_recoveries",
		Help: "Number of administratively supplied proof votes",
	})

	return m
}
