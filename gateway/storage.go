// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/lpgateway/domain"
	"github.com/luxfi/lpgateway/message"
)

// Storage layout: one keyspace per concern, isolated by prefix on the shared
// gateway database. All helpers take the database view to operate on, so the
// same code runs against the committed state or a versioned overlay.
var (
	registryPrefix  = []byte("registry")
	pendingPrefix   = []byte("pending")
	allowlistPrefix = []byte("allowlist")
	batchPrefix     = []byte("batch")

	routersKey = []byte("routers")
	sessionKey = []byte("session")
)

func registryDB(db database.Database) database.Database {
	return prefixdb.New(registryPrefix, db)
}

func pendingDB(db database.Database) database.Database {
	return prefixdb.New(pendingPrefix, db)
}

func allowlistDB(db database.Database) database.Database {
	return prefixdb.New(allowlistPrefix, db)
}

func batchDB(db database.Database) database.Database {
	return prefixdb.New(batchPrefix, db)
}

// routerList is the codec envelope for the stored registry.
type routerList struct {
	RouterIDs []ids.ID `serialize:"true"`
}

func getRouterIDs(db database.Database) ([]ids.ID, error) {
	bytes, err := registryDB(db).Get(routersKey)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	list := routerList{}
	if _, err := c.Unmarshal(bytes, &list); err != nil {
		return nil, err
	}
	return list.RouterIDs, nil
}

func putRouterIDs(db database.Database, routerIDs []ids.ID) error {
	bytes, err := c.Marshal(codecVersion, &routerList{RouterIDs: routerIDs})
	if err != nil {
		return err
	}
	return registryDB(db).Put(routersKey, bytes)
}

func getSessionID(db database.Database) (uint32, error) {
	bytes, err := registryDB(db).Get(sessionKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(bytes), nil
}

func putSessionID(db database.Database, sessionID uint32) error {
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, sessionID)
	return registryDB(db).Put(sessionKey, bytes)
}

func pendingKey(proof ids.ID, routerID ids.ID) []byte {
	key := make([]byte, 0, 64)
	key = append(key, proof[:]...)
	key = append(key, routerID[:]...)
	return key
}

// getPendingEntry returns nil without error when no entry is stored.
func getPendingEntry(db database.Database, proof ids.ID, routerID ids.ID) (inboundEntry, error) {
	bytes, err := pendingDB(db).Get(pendingKey(proof, routerID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry inboundEntry
	if _, err := c.Unmarshal(bytes, &entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func putPendingEntry(db database.Database, proof ids.ID, routerID ids.ID, entry inboundEntry) error {
	bytes, err := c.Marshal(codecVersion, &entry)
	if err != nil {
		return err
	}
	return pendingDB(db).Put(pendingKey(proof, routerID), bytes)
}

func deletePendingEntry(db database.Database, proof ids.ID, routerID ids.ID) error {
	return pendingDB(db).Delete(pendingKey(proof, routerID))
}

func hasInstance(db database.Database, instance domain.Address) (bool, error) {
	return allowlistDB(db).Has(instance.Bytes())
}

func putInstance(db database.Database, instance domain.Address) error {
	return allowlistDB(db).Put(instance.Bytes(), nil)
}

func deleteInstance(db database.Database, instance domain.Address) error {
	return allowlistDB(db).Delete(instance.Bytes())
}

func batchKey(sender ids.ShortID, destination domain.Domain) []byte {
	key := make([]byte, 0, 28)
	key = append(key, sender[:]...)
	key = append(key, destination.Bytes()...)
	return key
}

// getBatch returns nil without error when no batch is open for the key.
func getBatch(db database.Database, sender ids.ShortID, destination domain.Domain) (*message.Batch, error) {
	bytes, err := batchDB(db).Get(batchKey(sender, destination))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	batch := &message.Batch{}
	if _, err := c.Unmarshal(bytes, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func putBatch(db database.Database, sender ids.ShortID, destination domain.Domain, batch *message.Batch) error {
	bytes, err := c.Marshal(codecVersion, batch)
	if err != nil {
		return err
	}
	return batchDB(db).Put(batchKey(sender, destination), bytes)
}

func deleteBatch(db database.Database, sender ids.ShortID, destination domain.Domain) error {
	return batchDB(db).Delete(batchKey(sender, destination))
}
