// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/message"
	"github.com/luxfi/lpgateway/utils/math"
)

func newTestInfo(numRouters int) *processingInfo {
	routerIDs := make([]ids.ID, numRouters)
	for i := range routerIDs {
		routerIDs[i] = ids.GenerateTestID()
	}
	return &processingInfo{
		origin: domain.Address{
			Domain:  domain.Domain(1),
			Account: ids.GenerateTestShortID(),
		},
		routerIDs:          routerIDs,
		sessionID:          1,
		expectedPerMessage: uint32(numRouters - 1),
	}
}

func TestNewInboundEntry(t *testing.T) {
	require := require.New(t)

	info := newTestInfo(3)

	payload := &message.Payload{Data: []byte("transfer 100")}
	entry := newInboundEntry(info, payload)
	msgEntry, ok := entry.(*messageEntry)
	require.True(ok)
	require.Equal(info.sessionID, msgEntry.SessionID)
	require.Equal(info.origin, msgEntry.Origin)
	require.Equal(payload, msgEntry.Message)
	require.Equal(uint32(2), msgEntry.ExpectedProofCount)

	entry = newInboundEntry(info, message.ToProof(payload))
	prfEntry, ok := entry.(*proofEntry)
	require.True(ok)
	require.Equal(info.sessionID, prfEntry.SessionID)
	require.Equal(uint32(1), prfEntry.CurrentCount)
}

func TestValidateEntry(t *testing.T) {
	info := newTestInfo(3)
	msgEntry := &messageEntry{}
	prfEntry := &proofEntry{}

	tests := []struct {
		name     string
		entry    inboundEntry
		routerID ids.ID
		err      error
	}{
		{
			name:     "message from first router",
			entry:    msgEntry,
			routerID: info.routerIDs[0],
		},
		{
			name:     "message from second router",
			entry:    msgEntry,
			routerID: info.routerIDs[1],
			err:      ErrMessageExpectedFromFirstRouter,
		},
		{
			name:     "proof from second router",
			entry:    prfEntry,
			routerID: info.routerIDs[1],
		},
		{
			name:     "proof from first router",
			entry:    prfEntry,
			routerID: info.routerIDs[0],
			err:      ErrProofNotExpectedFromFirstRouter,
		},
		{
			name:     "unknown router",
			entry:    msgEntry,
			routerID: ids.GenerateTestID(),
			err:      ErrUnknownRouter,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := validateEntry(test.entry, info.routerIDs, test.routerID)
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestPreDispatchUpdateMessages(t *testing.T) {
	require := require.New(t)

	payload := &message.Payload{Data: []byte("transfer 100")}
	stored := &messageEntry{
		SessionID:          1,
		Message:            payload,
		ExpectedProofCount: 2,
	}

	// Same session: counts accumulate.
	merged, err := preDispatchUpdate(stored, &messageEntry{
		SessionID:          1,
		Message:            payload,
		ExpectedProofCount: 2,
	})
	require.NoError(err)
	require.Equal(uint32(4), merged.(*messageEntry).ExpectedProofCount)

	// New session: the candidate replaces the stored entry.
	candidate := &messageEntry{
		SessionID:          2,
		Message:            payload,
		ExpectedProofCount: 2,
	}
	merged, err = preDispatchUpdate(stored, candidate)
	require.NoError(err)
	require.Equal(candidate, merged)

	// Variant mismatch is rejected.
	_, err = preDispatchUpdate(stored, &proofEntry{SessionID: 1, CurrentCount: 1})
	require.ErrorIs(err, ErrExpectedMessageType)

	// Count saturation is an error, not a wrap.
	stored.ExpectedProofCount = math.MaxUint[uint32]()
	_, err = preDispatchUpdate(stored, &messageEntry{
		SessionID:          1,
		Message:            payload,
		ExpectedProofCount: 1,
	})
	require.ErrorIs(err, math.ErrOverflow)
}

func TestPreDispatchUpdateProofs(t *testing.T) {
	require := require.New(t)

	stored := &proofEntry{
		SessionID:    1,
		CurrentCount: 1,
	}

	merged, err := preDispatchUpdate(stored, &proofEntry{
		SessionID:    1,
		CurrentCount: 1,
	})
	require.NoError(err)
	require.Equal(uint32(2), merged.(*proofEntry).CurrentCount)

	candidate := &proofEntry{
		SessionID:    2,
		CurrentCount: 1,
	}
	merged, err = preDispatchUpdate(stored, candidate)
	require.NoError(err)
	require.Equal(candidate, merged)

	_, err = preDispatchUpdate(stored, &messageEntry{SessionID: 1})
	require.ErrorIs(err, ErrExpectedProofType)

	stored.CurrentCount = math.MaxUint[uint32]()
	_, err = preDispatchUpdate(stored, &proofEntry{
		SessionID:    1,
		CurrentCount: 1,
	})
	require.ErrorIs(err, math.ErrOverflow)
}

func TestIncrementProofCount(t *testing.T) {
	require := require.New(t)

	entry, err := incrementProofCount(&proofEntry{
		SessionID:    1,
		CurrentCount: 1,
	}, 1)
	require.NoError(err)
	require.Equal(uint32(2), entry.(*proofEntry).CurrentCount)

	// A session change resets the count instead of stacking onto stale votes.
	entry, err = incrementProofCount(&proofEntry{
		SessionID:    1,
		CurrentCount: 7,
	}, 2)
	require.NoError(err)
	require.Equal(&proofEntry{
		SessionID:    2,
		CurrentCount: 1,
	}, entry)

	_, err = incrementProofCount(&messageEntry{}, 1)
	require.ErrorIs(err, ErrExpectedProofType)

	_, err = incrementProofCount(&proofEntry{
		SessionID:    1,
		CurrentCount: math.MaxUint[uint32](),
	}, 1)
	require.ErrorIs(err, math.ErrOverflow)
}

func TestPostVotingEntry(t *testing.T) {
	require := require.New(t)

	info := newTestInfo(3)

	// Spent entries are removed.
	residual, err := postVotingEntry(&messageEntry{
		SessionID:          1,
		ExpectedProofCount: 2,
	}, info)
	require.NoError(err)
	require.Nil(residual)

	// A surplus from repeated deliveries stays pending.
	residual, err = postVotingEntry(&messageEntry{
		SessionID:          1,
		ExpectedProofCount: 4,
	}, info)
	require.NoError(err)
	require.Equal(uint32(2), residual.(*messageEntry).ExpectedProofCount)

	// Stale sessions are dropped outright, without consuming anything.
	residual, err = postVotingEntry(&messageEntry{
		SessionID:          0,
		ExpectedProofCount: 1,
	}, info)
	require.NoError(err)
	require.Nil(residual)

	// Consuming more than was recorded indicates a defect.
	_, err = postVotingEntry(&messageEntry{
		SessionID:          1,
		ExpectedProofCount: 1,
	}, info)
	require.ErrorIs(err, math.ErrUnderflow)

	residual, err = postVotingEntry(&proofEntry{
		SessionID:    1,
		CurrentCount: 2,
	}, info)
	require.NoError(err)
	require.Equal(uint32(1), residual.(*proofEntry).CurrentCount)

	residual, err = postVotingEntry(&proofEntry{
		SessionID:    1,
		CurrentCount: 1,
	}, info)
	require.NoError(err)
	require.Nil(residual)

	residual, err = postVotingEntry(&proofEntry{
		SessionID:    0,
		CurrentCount: 5,
	}, info)
	require.NoError(err)
	require.Nil(residual)
}
