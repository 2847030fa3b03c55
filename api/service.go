// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api exposes read-only gateway state over JSON-RPC.
package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/lpgateway/gateway"
)

type Config struct {
	Log     log.Logger
	Gateway *gateway.Gateway
}

// Service is the gateway API service.
type Service struct {
	log     log.Logger
	gateway *gateway.Gateway
}

// NewService returns an http.Handler serving the gateway API under the
// "gateway" service name.
func NewService(config Config) (http.Handler, error) {
	switch {
	case config.Log == nil:
		return nil, errors.New("nil logger")
	case config.Gateway == nil:
		return nil, errors.New("nil gateway")
	}

	server := rpc.NewServer()
	codec := json2.NewCodec()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	return server, server.RegisterService(
		&Service{
			log:     config.Log,
			gateway: config.Gateway,
		},
		"gateway",
	)
}

type GetRoutersReply struct {
	RouterIDs []ids.ID `json:"routerIDs"`
	SessionID uint32   `json:"sessionID"`
}

// GetRouters returns the configured router list and the current session.
func (s *Service) GetRouters(_ *http.Request, _ *struct{}, reply *GetRoutersReply) error {
	s.log.Debug("API called",
		log.String("service", "gateway"),
		log.String("method", "getRouters"),
	)

	routerIDs, sessionID, err := s.gateway.Routers()
	if err != nil {
		return err
	}
	reply.RouterIDs = routerIDs
	reply.SessionID = sessionID
	return nil
}

type GetSessionReply struct {
	SessionID uint32 `json:"sessionID"`
}

// GetSession returns the current session identifier.
func (s *Service) GetSession(_ *http.Request, _ *struct{}, reply *GetSessionReply) error {
	s.log.Debug("API called",
		log.String("service", "gateway"),
		log.String("method", "getSession"),
	)

	_, sessionID, err := s.gateway.Routers()
	if err != nil {
		return err
	}
	reply.SessionID = sessionID
	return nil
}

type GetPendingEntryArgs struct {
	Proof    ids.ID `json:"proof"`
	RouterID ids.ID `json:"routerID"`
}

type GetPendingEntryReply struct {
	Entry gateway.PendingEntryInfo `json:"entry"`
}

// GetPendingEntry returns the recorded contribution of one router toward a
// message proof.
func (s *Service) GetPendingEntry(_ *http.Request, args *GetPendingEntryArgs, reply *GetPendingEntryReply) error {
	s.log.Debug("API called",
		log.String("service", "gateway"),
		log.String("method", "getPendingEntry"),
		log.Stringer("proof", args.Proof),
	)

	entry, err := s.gateway.PendingEntry(args.Proof, args.RouterID)
	if err != nil {
		return err
	}
	reply.Entry = entry
	return nil
}
