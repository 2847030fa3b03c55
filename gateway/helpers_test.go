// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/message"
)

type handledCall struct {
	origin domain.Address
	msg    message.Message
}

var errRefusedByHandler = errors.New("refused by handler")

type testHandler struct {
	calls []handledCall
	err   error

	// failData makes Handle refuse payloads with this exact content.
	failData []byte
}

func (h *testHandler) Handle(origin domain.Address, msg message.Message) error {
	if h.err != nil {
		return h.err
	}
	if payload, ok := msg.(*message.Payload); ok && h.failData != nil && bytes.Equal(payload.Data, h.failData) {
		return errRefusedByHandler
	}
	h.calls = append(h.calls, handledCall{
		origin: origin,
		msg:    msg,
	})
	return nil
}

type sentMessage struct {
	routerID ids.ID
	sender   ids.ShortID
	msg      []byte
}

type testSender struct {
	sent []sentMessage
	err  error
}

func (s *testSender) Send(routerID ids.ID, sender ids.ShortID, msg []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{
		routerID: routerID,
		sender:   sender,
		msg:      msg,
	})
	return nil
}

type recordingQueue struct {
	submitted []message.GatewayMessage
}

func (q *recordingQueue) Submit(msg message.GatewayMessage) error {
	q.submitted = append(q.submitted, msg)
	return nil
}

type testEnv struct {
	gateway *Gateway
	handler *testHandler
	sender  *testSender
	queue   *recordingQueue

	admin         ids.ShortID
	gatewaySender ids.ShortID
	origin        domain.Address
}

func newTestEnv(t *testing.T) *testEnv {
	require := require.New(t)

	env := &testEnv{
		handler:       &testHandler{},
		sender:        &testSender{},
		queue:         &recordingQueue{},
		admin:         ids.GenerateTestShortID(),
		gatewaySender: ids.GenerateTestShortID(),
		origin: domain.Address{
			Domain:  domain.Domain(1),
			Account: ids.GenerateTestShortID(),
		},
	}

	gw, err := New(Config{
		Log:           log.NewNoOpLogger(),
		DB:            memdb.New(),
		Handler:       env.handler,
		Sender:        env.sender,
		Admin:         NewAdminList(env.admin),
		Queue:         env.queue,
		GatewaySender: env.gatewaySender,
	})
	require.NoError(err)
	env.gateway = gw
	return env
}

// withRouters configures numRouters fresh routers and returns them in
// registry order. The first one is the primary.
func (env *testEnv) withRouters(t *testing.T, numRouters int) []ids.ID {
	routerIDs := make([]ids.ID, numRouters)
	for i := range routerIDs {
		routerIDs[i] = ids.GenerateTestID()
	}
	require.NoError(t, env.gateway.SetRouters(env.admin, routerIDs))
	return routerIDs
}

// deliver runs one inbound delivery through quorum processing.
func (env *testEnv) deliver(msg message.Message, routerID ids.ID) (uint64, error) {
	return env.gateway.Process(&message.InboundMessage{
		Origin:   env.origin,
		Message:  msg,
		RouterID: routerID,
	})
}
