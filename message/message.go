// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package message defines the wire form of liquidity-pools gateway messages.
//
// A full message travels on exactly one router; every other router carries a
// Proof holding the content hash of the same logical message. The gateway
// correlates the two through ProofHash.
package message

import (
	"crypto/sha256"

	"github.com/luxfi/ids"
)

// Message is one liquidity-pools message as delivered by a router.
type Message interface {
	// ProofHash returns the content hash correlating a full message with the
	// confirmations carried on the remaining routers.
	ProofHash() ids.ID

	// IsProof reports whether the message carries only a confirmation hash
	// instead of the full payload.
	IsProof() bool

	// Submessages returns the discrete messages packed in this delivery, in
	// processing order. Non-batch messages return themselves.
	Submessages() []Message
}

var (
	_ Message = (*Payload)(nil)
	_ Message = (*Proof)(nil)
	_ Message = (*Batch)(nil)
)

// Payload is a full message body. The gateway treats the content as opaque;
// decoding it is the inbound handler's concern.
type Payload struct {
	Data []byte `serialize:"true" json:"data"`
}

func (p *Payload) ProofHash() ids.ID {
	return ids.ID(sha256.Sum256(p.Data))
}

func (*Payload) IsProof() bool {
	return false
}

func (p *Payload) Submessages() []Message {
	return []Message{p}
}

// Proof is the confirmation-only form of a message, carrying the content hash
// of the full payload delivered on another router.
type Proof struct {
	Hash ids.ID `serialize:"true" json:"hash"`
}

func (p *Proof) ProofHash() ids.ID {
	return p.Hash
}

func (*Proof) IsProof() bool {
	return true
}

func (p *Proof) Submessages() []Message {
	return []Message{p}
}

// Batch packs multiple outbound messages into a single submission. Its proof
// hash covers the packed contents, so one confirmation per router settles the
// whole batch.
type Batch struct {
	Messages []Message `serialize:"true" json:"messages"`
}

func (b *Batch) ProofHash() ids.ID {
	h := sha256.New()
	for _, msg := range b.Messages {
		hash := msg.ProofHash()
		h.Write(hash[:])
	}
	var id ids.ID
	copy(id[:], h.Sum(nil))
	return id
}

func (*Batch) IsProof() bool {
	return false
}

func (b *Batch) Submessages() []Message {
	return b.Messages
}

// ToProof returns the confirmation counterpart of msg.
func ToProof(msg Message) *Proof {
	return &Proof{Hash: msg.ProofHash()}
}
