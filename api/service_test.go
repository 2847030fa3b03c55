// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/gateway"
	"github.com/luxfi/lpgateway/message"
)

type noopHandler struct{}

func (noopHandler) Handle(domain.Address, message.Message) error {
	return nil
}

type noopSender struct{}

func (noopSender) Send(ids.ID, ids.ShortID, []byte) error {
	return nil
}

type noopQueue struct{}

func (noopQueue) Submit(message.GatewayMessage) error {
	return nil
}

func newTestService(t *testing.T) (*Service, *gateway.Gateway, ids.ShortID) {
	require := require.New(t)

	admin := ids.GenerateTestShortID()
	gw, err := gateway.New(gateway.Config{
		Log:     log.NewNoOpLogger(),
		DB:      memdb.New(),
		Handler: noopHandler{},
		Sender:  noopSender{},
		Admin:   gateway.NewAdminList(admin),
		Queue:   noopQueue{},
	})
	require.NoError(err)

	handler, err := NewService(Config{
		Log:     log.NewNoOpLogger(),
		Gateway: gw,
	})
	require.NoError(err)
	require.NotNil(handler)

	return &Service{
		log:     log.NewNoOpLogger(),
		gateway: gw,
	}, gw, admin
}

func TestNewServiceRejectsMissingDependencies(t *testing.T) {
	require := require.New(t)

	_, err := NewService(Config{Log: log.NewNoOpLogger()})
	require.Error(err)

	_, err = NewService(Config{})
	require.Error(err)
}

func TestGetRouters(t *testing.T) {
	require := require.New(t)

	service, gw, admin := newTestService(t)

	reply := GetRoutersReply{}
	require.NoError(service.GetRouters(nil, nil, &reply))
	require.Empty(reply.RouterIDs)
	require.Zero(reply.SessionID)

	routerIDs := []ids.ID{ids.GenerateTestID(), ids.GenerateTestID()}
	require.NoError(gw.SetRouters(admin, routerIDs))

	reply = GetRoutersReply{}
	require.NoError(service.GetRouters(nil, nil, &reply))
	require.Equal(routerIDs, reply.RouterIDs)
	require.Equal(uint32(1), reply.SessionID)
}

func TestGetSession(t *testing.T) {
	require := require.New(t)

	service, gw, admin := newTestService(t)

	routerIDs := []ids.ID{ids.GenerateTestID()}
	require.NoError(gw.SetRouters(admin, routerIDs))
	require.NoError(gw.SetRouters(admin, routerIDs))

	reply := GetSessionReply{}
	require.NoError(service.GetSession(nil, nil, &reply))
	require.Equal(uint32(2), reply.SessionID)
}

func TestGetPendingEntry(t *testing.T) {
	require := require.New(t)

	service, gw, admin := newTestService(t)

	routerIDs := []ids.ID{ids.GenerateTestID(), ids.GenerateTestID()}
	require.NoError(gw.SetRouters(admin, routerIDs))

	origin := domain.Address{
		Domain:  domain.Domain(1),
		Account: ids.GenerateTestShortID(),
	}
	payload := &message.Payload{Data: []byte("transfer 100")}
	_, err := gw.Process(&message.InboundMessage{
		Origin:   origin,
		Message:  payload,
		RouterID: routerIDs[0],
	})
	require.NoError(err)

	args := GetPendingEntryArgs{
		Proof:    payload.ProofHash(),
		RouterID: routerIDs[0],
	}
	reply := GetPendingEntryReply{}
	require.NoError(service.GetPendingEntry(nil, &args, &reply))
	require.Equal(
		gateway.PendingEntryInfo{
			SessionID:          1,
			ExpectedProofCount: 1,
		},
		reply.Entry,
	)

	args.RouterID = routerIDs[1]
	err = service.GetPendingEntry(nil, &args, &GetPendingEntryReply{})
	require.ErrorIs(err, gateway.ErrPendingEntryNotFound)
}
