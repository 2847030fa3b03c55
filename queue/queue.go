// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package queue persists gateway messages under monotonically increasing
// nonces and drains them under an explicit cost budget. Messages whose
// processing fails are parked in a failed store for manual replay instead of
// blocking the sweep.
package queue

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/log"

	"github.com/luxfi/lpgateway/message"
	"github.com/luxfi/lpgateway/utils/math"
)

// DefensiveCost is the per-submessage processing cost unit. It deliberately
// overestimates so a budgeted sweep never overruns its allowance.
const DefensiveCost uint64 = 5_000

var (
	ErrMessageNotFound = errors.New("message not found")

	noncePrefix  = []byte("nonce")
	queuePrefix  = []byte("queue")
	failedPrefix = []byte("failed")

	nonceKey         = []byte("next")
	lastProcessedKey = []byte("last")
)

// Processor runs one gateway message to completion, returning the number of
// submessages processed.
type Processor interface {
	Process(msg message.GatewayMessage) (uint64, error)
}

// ProcessingCost maps a processed submessage count onto the cost model.
func ProcessingCost(n uint64) uint64 {
	return n * DefensiveCost
}

// MaxProcessingCost is the upper bound for processing msg, used to decide
// whether a sweep still has budget for it.
func MaxProcessingCost(msg message.GatewayMessage) uint64 {
	if inbound, ok := msg.(*message.InboundMessage); ok {
		return ProcessingCost(uint64(len(inbound.Message.Submessages())))
	}
	return ProcessingCost(1)
}

type Config struct {
	Log       log.Logger
	DB        database.Database
	Processor Processor
}

// Queue is the persistent gateway-message queue. The lock serializes all
// queue mutations, including the budgeted sweep.
type Queue struct {
	lock sync.Mutex

	log       log.Logger
	processor Processor
	metrics   *metrics

	nonceDB  database.Database
	queueDB  database.Database
	failedDB database.Database
}

func New(config Config) (*Queue, error) {
	switch {
	case config.Log == nil:
		return nil, errors.New("nil logger")
	case config.DB == nil:
		return nil, errors.New("nil database")
	case config.Processor == nil:
		return nil, errors.New("nil processor")
	}

	return &Queue{
		log:       config.Log,
		processor: config.Processor,
		metrics:   newMetrics(),
		nonceDB:   prefixdb.New(noncePrefix, config.DB),
		queueDB:   prefixdb.New(queuePrefix, config.DB),
		failedDB:  prefixdb.New(failedPrefix, config.DB),
	}, nil
}

func nonceToKey(nonce uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, nonce)
	return key
}

func (q *Queue) getNonce(key []byte) (uint64, error) {
	bytes, err := q.nonceDB.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(bytes), nil
}

func (q *Queue) putNonce(key []byte, nonce uint64) error {
	return q.nonceDB.Put(key, nonceToKey(nonce))
}

// Submit stores msg under the next nonce.
func (q *Queue) Submit(msg message.GatewayMessage) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	nonce, err := q.getNonce(nonceKey)
	if err != nil {
		return err
	}
	nonce, err = math.Add(nonce, 1)
	if err != nil {
		return err
	}

	msgBytes, err := message.EnvelopeBytes(msg)
	if err != nil {
		return err
	}
	if err := q.queueDB.Put(nonceToKey(nonce), msgBytes); err != nil {
		return err
	}
	if err := q.putNonce(nonceKey, nonce); err != nil {
		return err
	}

	q.log.Debug("message submitted",
		log.Uint64("nonce", nonce),
	)
	q.metrics.numSubmitted.Inc()
	return nil
}

// getMessage returns nil without error when no message is stored at nonce.
func getMessage(db database.Database, nonce uint64) (message.GatewayMessage, error) {
	bytes, err := db.Get(nonceToKey(nonce))
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return message.ParseEnvelope(bytes)
}

// process runs one message and records the outcome.
func (q *Queue) process(nonce uint64, msg message.GatewayMessage) (uint64, error) {
	units, err := q.processor.Process(msg)
	cost := ProcessingCost(units)
	if err != nil {
		q.log.Warn("message execution failed",
			log.Uint64("nonce", nonce),
			log.Err(err),
		)
		q.metrics.numFailed.Inc()
		return cost, err
	}

	q.log.Debug("message execution succeeded",
		log.Uint64("nonce", nonce),
	)
	q.metrics.numProcessed.Inc()
	return cost, nil
}

// parkFailed moves a message into the failed store, keeping the error text
// for inspection.
func (q *Queue) parkFailed(nonce uint64, msg message.GatewayMessage, cause error) error {
	msgBytes, err := message.EnvelopeBytes(msg)
	if err != nil {
		return err
	}
	record := append(msgBytes, []byte(cause.Error())...)

	// The envelope length prefix lets the error text be recovered.
	key := nonceToKey(nonce)
	lenPrefix := make([]byte, 4)
	binary.BigEndian.PutUint32(lenPrefix, uint32(len(msgBytes)))
	return q.failedDB.Put(key, append(lenPrefix, record...))
}

// getFailed returns the parked message and the recorded error text.
func (q *Queue) getFailed(nonce uint64) (message.GatewayMessage, string, error) {
	bytes, err := q.failedDB.Get(nonceToKey(nonce))
	if errors.Is(err, database.ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	if len(bytes) < 4 {
		return nil, "", errors.New("corrupt failed-message record")
	}

	msgLen := binary.BigEndian.Uint32(bytes[:4])
	if uint32(len(bytes)-4) < msgLen {
		return nil, "", errors.New("corrupt failed-message record")
	}
	msg, err := message.ParseEnvelope(bytes[4 : 4+msgLen])
	if err != nil {
		return nil, "", err
	}
	return msg, string(bytes[4+msgLen:]), nil
}

// ProcessMessage manually runs the queued message at nonce. A failure parks
// the message in the failed store; the storage changes made on the way are
// retained either way, so the processing error is returned but never undoes
// the park.
func (q *Queue) ProcessMessage(nonce uint64) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	msg, err := getMessage(q.queueDB, nonce)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	if err := q.queueDB.Delete(nonceToKey(nonce)); err != nil {
		return err
	}

	if _, perr := q.process(nonce, msg); perr != nil {
		if err := q.parkFailed(nonce, msg, perr); err != nil {
			return err
		}
		return perr
	}
	return nil
}

// ProcessFailedMessage retries a parked message; success removes it from the
// failed store.
func (q *Queue) ProcessFailedMessage(nonce uint64) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	msg, _, err := q.getFailed(nonce)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	if _, perr := q.process(nonce, msg); perr != nil {
		return perr
	}
	return q.failedDB.Delete(nonceToKey(nonce))
}

// ServiceQueue drains queued messages in nonce order while the budget holds,
// and returns the cost used. Failures are parked and do not stop the sweep;
// nonce gaps are skipped.
func (q *Queue) ServiceQueue(maxCost uint64) uint64 {
	q.lock.Lock()
	defer q.lock.Unlock()

	lastProcessed, err := q.getNonce(lastProcessedKey)
	if err != nil {
		q.log.Error("failed to read last processed nonce",
			log.Err(err),
		)
		return 0
	}
	submitted, err := q.getNonce(nonceKey)
	if err != nil {
		q.log.Error("failed to read submitted nonce",
			log.Err(err),
		)
		return 0
	}

	var used uint64
	for {
		next, err := math.Add(lastProcessed, 1)
		if err != nil {
			// The nonce space is exhausted; nothing further can ever be
			// drained.
			q.log.Error("message nonce space exhausted",
				log.Uint64("lastProcessed", lastProcessed),
			)
			return used
		}
		if next > submitted {
			return used
		}

		msg, err := getMessage(q.queueDB, next)
		if err != nil {
			q.log.Error("failed to load queued message",
				log.Uint64("nonce", next),
				log.Err(err),
			)
			return used
		}
		if msg == nil {
			lastProcessed = next
			if err := q.putNonce(lastProcessedKey, next); err != nil {
				q.log.Error("failed to advance last processed nonce",
					log.Err(err),
				)
				return used
			}
			continue
		}

		if maxCost-used < MaxProcessingCost(msg) {
			return used
		}

		cost, perr := q.process(next, msg)
		if perr != nil {
			if err := q.parkFailed(next, msg, perr); err != nil {
				q.log.Error("failed to park failed message",
					log.Uint64("nonce", next),
					log.Err(err),
				)
				return used
			}
		}
		used += cost

		if err := q.queueDB.Delete(nonceToKey(next)); err != nil {
			q.log.Error("failed to remove processed message",
				log.Uint64("nonce", next),
				log.Err(err),
			)
			return used
		}
		lastProcessed = next
		if err := q.putNonce(lastProcessedKey, next); err != nil {
			q.log.Error("failed to advance last processed nonce",
				log.Err(err),
			)
			return used
		}
	}
}
