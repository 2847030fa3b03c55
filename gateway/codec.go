// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"errors"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
	"github.com/luxfi/constants"

	"github.com/luxfi/lpgateway/message"
)

const (
	codecVersion = 0
	maxEntrySize = 512 * constants.KiB
)

// c serializes pending entries and batches for storage. The message variants
// are registered too since entries embed them.
var c codec.Manager

func init() {
	c = codec.NewManager(maxEntrySize)
	lc := linearcodec.NewDefault()

	err := errors.Join(
		lc.RegisterType(&message.Payload{}),
		lc.RegisterType(&message.Proof{}),
		lc.RegisterType(&message.Batch{}),
		lc.RegisterType(&messageEntry{}),
		lc.RegisterType(&proofEntry{}),
		c.RegisterCodec(codecVersion, lc),
	)
	if err != nil {
		panic(err)
	}
}
