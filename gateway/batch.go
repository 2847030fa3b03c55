// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/message"
)

// StartBatch opens a batch for (sender, destination). Until EndBatch, every
// message the sender hands to Handle for that destination is packed instead
// of submitted.
func (g *Gateway) StartBatch(sender ids.ShortID, destination domain.Domain) error {
	if destination == domain.Local {
		return ErrDomainNotSupported
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	batch, err := getBatch(g.db, sender, destination)
	if err != nil {
		return err
	}
	if batch != nil {
		return ErrMessagePackingAlreadyStarted
	}
	return putBatch(g.db, sender, destination, &message.Batch{})
}

// EndBatch closes the open batch and, when it packed at least one message,
// submits the combined message as a single outbound item. An empty batch
// submits nothing.
func (g *Gateway) EndBatch(sender ids.ShortID, destination domain.Domain) error {
	g.lock.Lock()
	defer g.lock.Unlock()

	batch, err := getBatch(g.db, sender, destination)
	if err != nil {
		return err
	}
	if batch == nil {
		return ErrMessagePackingNotStarted
	}

	if len(batch.Messages) > 0 {
		if err := g.queueOutbound(destination, batch); err != nil {
			return err
		}
	}

	g.log.Debug("batch closed",
		log.Stringer("sender", sender),
		log.Stringer("destination", destination),
		log.Int("messages", len(batch.Messages)),
	)
	return deleteBatch(g.db, sender, destination)
}

// Handle accepts one outbound send request. With no open batch for (sender,
// destination) the message is queued immediately; otherwise it is packed,
// bounded by MaxPackedMessages.
func (g *Gateway) Handle(sender ids.ShortID, destination domain.Domain, msg message.Message) error {
	if destination == domain.Local {
		return ErrDomainNotSupported
	}

	g.lock.Lock()
	defer g.lock.Unlock()

	batch, err := getBatch(g.db, sender, destination)
	if err != nil {
		return err
	}
	if batch == nil {
		return g.queueOutbound(destination, msg)
	}

	if len(batch.Messages) >= MaxPackedMessages {
		return errMaxPackedMessages
	}
	batch.Messages = append(batch.Messages, msg)
	return putBatch(g.db, sender, destination, batch)
}
