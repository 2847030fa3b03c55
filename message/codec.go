// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package message

import (
	"errors"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
	"github.com/luxfi/constants"
)

const (
	codecVersion   = 0
	maxMessageSize = 512 * constants.KiB
)

// Codec does serialization and deserialization
var c codec.Manager

func init() {
	c = codec.NewManager(maxMessageSize)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&Payload{}),
		lc.RegisterType(&Proof{}),
		lc.RegisterType(&Batch{}),
		lc.RegisterType(&InboundMessage{}),
		lc.RegisterType(&OutboundMessage{}),
		c.RegisterCodec(codecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}

// Bytes returns the serialized form of msg.
func Bytes(msg Message) ([]byte, error) {
	return c.Marshal(codecVersion, &msg)
}

// Parse deserializes a message received from a router.
func Parse(bytes []byte) (Message, error) {
	var msg Message
	if _, err := c.Unmarshal(bytes, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// EnvelopeBytes returns the serialized form of a queued gateway message.
func EnvelopeBytes(msg GatewayMessage) ([]byte, error) {
	return c.Marshal(codecVersion, &msg)
}

// ParseEnvelope deserializes a queued gateway message.
func ParseEnvelope(bytes []byte) (GatewayMessage, error) {
	var msg GatewayMessage
	if _, err := c.Unmarshal(bytes, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}
