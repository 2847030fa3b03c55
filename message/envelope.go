// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"github.com/luxfi/ids"

	"github.com/luxfi/lpgateway/domain"
)

// GatewayMessage is the envelope the gateway queues for later processing,
// either an inbound delivery from a router or an outbound send request.
type GatewayMessage interface {
	isGatewayMessage()
}

var (
	_ GatewayMessage = (*InboundMessage)(nil)
	_ GatewayMessage = (*OutboundMessage)(nil)
)

// InboundMessage is a delivery received from a router, pending quorum
// processing.
type InboundMessage struct {
	Origin   domain.Address `serialize:"true" json:"origin"`
	Message  Message        `serialize:"true" json:"message"`
	RouterID ids.ID         `serialize:"true" json:"routerID"`
}

func (*InboundMessage) isGatewayMessage() {}

// OutboundMessage is a send request bound for a single router transport.
type OutboundMessage struct {
	Sender   ids.ShortID `serialize:"true" json:"sender"`
	Message  Message     `serialize:"true" json:"message"`
	RouterID ids.ID      `serialize:"true" json:"routerID"`
}

func (*OutboundMessage) isGatewayMessage() {}
