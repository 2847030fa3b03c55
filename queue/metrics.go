// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"github.com/luxfi/metric"
)

type metrics struct {
	numSubmitted, numProcessed, numFailed metric.Counter
}

// Counters self-register when created with NewCounter.
func newMetrics() *metrics {
	m := &metrics{}

	m.numSubmitted = metric.NewCounter(metric.CounterOpts{
		Name: "queue_messages_submitted",
		Help: "Number of gateway messages submitted to the queue",
	})
	m.numProcessed = metric.NewCounter(metric.CounterOpts{
		Name: "queue_messages_processed",
		Help: "Number of queued messages processed successfully",
	})
	m.numFailed = metric.NewCounter(metric.CounterOpts{
		Name: "queue_messages_failed",
		Help: "Number of queued messages whose processing failed",
	})

	return m
}
