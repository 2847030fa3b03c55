// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package domain identifies the counterpart chains a gateway exchanges
// liquidity-pools messages with, and the deployed instances on them.
package domain

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/ids"
)

// Domain is the EVM chain ID of a counterpart chain. The zero value is the
// local domain, which is never a valid message counterpart.
type Domain uint64

const Local Domain = 0

func (d Domain) String() string {
	if d == Local {
		return "local"
	}
	return fmt.Sprintf("evm-%d", uint64(d))
}

// Bytes returns the fixed 8-byte big-endian form used in storage keys.
func (d Domain) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(d))
	return b
}

// Address identifies a deployed liquidity-pools instance on a domain.
type Address struct {
	Domain  Domain      `serialize:"true" json:"domain"`
	Account ids.ShortID `serialize:"true" json:"account"`
}

// Bytes returns the fixed 28-byte form used in storage keys.
func (a Address) Bytes() []byte {
	b := make([]byte, 0, 28)
	b = append(b, a.Domain.Bytes()...)
	b = append(b, a.Account[:]...)
	return b
}

func (a Address) String() string {
	return fmt.Sprintf("%s:%s", a.Domain, a.Account)
}
