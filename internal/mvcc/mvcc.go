// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package mvcc implements the MVCC transaction manager (TXM): snapshot
// isolation over a single storage.Engine, with first-writer-wins
// write-conflict detection. A transaction's entire visible state is
// derived from its (version, active) snapshot, recorded at Begin and
// never mutated thereafter.
package mvcc

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/cockroachdb/swiss"
	"go.uber.org/zap"

	"github.com/Rayka-RJ/raydb/internal/storage"
	"github.com/Rayka-RJ/raydb/internal/valuecodec"
)

// Version is a monotonically increasing transaction identifier. Version 0
// is reserved as a scan sentinel and never assigned to a transaction.
type Version = uint64

// ErrWriteConflict is the only expected concurrency outcome: a transaction
// tried to write a key already written by a version it cannot see past.
// The transaction remains otherwise usable; callers are expected to
// abandon it and retry in a new one.
var ErrWriteConflict = errors.New("mvcc: write conflict")

// ErrInternal wraps codec and storage failures that are not a normal
// concurrency outcome.
var ErrInternal = errors.New("mvcc: internal error")

// Mvcc owns the single storage.Engine shared by every transaction it
// issues. Only one transactional step executes against the engine at a
// time; logical concurrency across transactions is preserved entirely by
// the version scheme below.
type Mvcc struct {
	mu        sync.Mutex
	engine    storage.Engine
	log       *zap.Logger
	valueKind valuecodec.Kind
}

// New wraps engine in a transaction manager. engine must not be used
// directly by any other caller for the lifetime of the returned Mvcc.
// valueKind selects the compression codec applied to every value written
// through this Mvcc; pass valuecodec.KindNone for no compression.
func New(engine storage.Engine, log *zap.Logger, valueKind valuecodec.Kind) *Mvcc {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mvcc{engine: engine, log: log, valueKind: valueKind}
}

// Begin starts a new transaction, assigning it the next version and
// snapshotting the set of versions currently in flight.
func (m *Mvcc) Begin() (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := readNextVersion(m.engine)
	if err != nil {
		return nil, err
	}
	if err := m.engine.Set(encodeNextVersion(), encodeVersionCounter(next+1)); err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}

	active, err := scanActiveVersions(m.engine)
	if err != nil {
		return nil, err
	}

	if err := m.engine.Set(encodeTxnActive(next), nil); err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}

	m.log.Debug("transaction began", zap.Uint64("version", next), zap.Int("active", active.Len()))
	return &Txn{mvcc: m, version: next, active: active}, nil
}

// Close releases the underlying engine. Call once, after every issued
// transaction has committed or rolled back.
func (m *Mvcc) Close() error {
	return m.engine.Close()
}

// Engine returns the storage.Engine this transaction manager wraps, for
// callers that need engine-specific operations (compaction) unavailable
// through the Txn interface. Callers must not mutate it directly; doing
// so bypasses MVCC bookkeeping.
func (m *Mvcc) Engine() storage.Engine {
	return m.engine
}

// scanActiveVersions collects every version with a live TxnActive marker,
// the snapshot a new transaction must exclude from visibility.
func scanActiveVersions(engine storage.Engine) (*swiss.Map[Version, struct{}], error) {
	prefix := txnActivePrefix()
	it := engine.Scan(storage.Range{Start: prefix, End: prefixEnd(prefix)})
	active := swiss.New[Version, struct{}](0)
	for {
		kv, ok, err := it.Next()
		if err != nil {
			return nil, errors.Wrap(ErrInternal, err.Error())
		}
		if !ok {
			break
		}
		v, err := decodeTxnActive(kv.Key)
		if err != nil {
			return nil, errors.Wrap(ErrInternal, err.Error())
		}
		active.Put(v, struct{}{})
	}
	return active, nil
}

// Txn is one snapshot-isolated transaction. All methods take the Mvcc's
// mutex for the duration of the single engine operation they perform and
// release it before returning.
type Txn struct {
	mvcc    *Mvcc
	version Version
	active  *swiss.Map[Version, struct{}]
	done    bool
}

// Version returns the transaction's own version.
func (t *Txn) Version() Version {
	return t.version
}

func (t *Txn) visible(candidate Version) bool {
	if _, inFlight := t.active.Get(candidate); inFlight {
		return false
	}
	return candidate <= t.version
}

// Get returns the value visible to this transaction for logical key key,
// scanning Version(key, 0)..=Version(key, self.version) in reverse and
// returning the first version satisfying visibility.
func (t *Txn) Get(key []byte) ([]byte, bool, error) {
	if t.done {
		return nil, false, errors.New("mvcc: transaction already finished")
	}
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	prefix := encodeVersionKeyPrefix(key)
	it := t.mvcc.engine.Scan(storage.Range{Start: prefix, End: prefixEnd(prefix)})
	for {
		kv, ok, err := it.Prev()
		if err != nil {
			return nil, false, errors.Wrap(ErrInternal, err.Error())
		}
		if !ok {
			return nil, false, nil
		}
		_, version, err := decodeVersionKey(kv.Key)
		if err != nil {
			return nil, false, errors.Wrap(ErrInternal, err.Error())
		}
		if !t.visible(version) {
			continue
		}
		value, present, err := decodeOptionalValue(kv.Value)
		if err != nil {
			return nil, false, err
		}
		if !present {
			return nil, false, nil
		}
		return value, true, nil
	}
}

// Set writes key=value under this transaction's version, subject to
// write-conflict detection.
func (t *Txn) Set(key, value []byte) error {
	return t.write(key, value)
}

// Delete writes a tombstone for key under this transaction's version,
// subject to write-conflict detection.
func (t *Txn) Delete(key []byte) error {
	return t.write(key, nil)
}

func (t *Txn) write(key []byte, value []byte) error {
	if t.done {
		return errors.New("mvcc: transaction already finished")
	}
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	lo := t.conflictLowerBound()
	prefix := encodeVersionKeyPrefix(key)
	scanLo := encodeVersionKey(key, lo)
	it := t.mvcc.engine.Scan(storage.Range{Start: scanLo, End: prefixEnd(prefix)})

	kv, sawAny, err := it.Prev()
	if err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	if sawAny {
		_, lastVersion, err := decodeVersionKey(kv.Key)
		if err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		if !t.visible(lastVersion) {
			t.mvcc.log.Debug("write conflict",
				zap.Uint64("version", t.version),
				zap.Stringer("key", redact.Sprint(key)))
			return ErrWriteConflict
		}
	}

	if err := t.mvcc.engine.Set(encodeTxnWrite(t.version, key), nil); err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	payload, err := encodeOptionalValue(value, t.mvcc.valueKind)
	if err != nil {
		return err
	}
	if err := t.mvcc.engine.Set(encodeVersionKey(key, t.version), payload); err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	return nil
}

// conflictLowerBound computes min(active ∪ {self.version + 1}), the
// fallback the source engine uses when no other version is in flight.
func (t *Txn) conflictLowerBound() Version {
	lo := t.version + 1
	t.active.All(func(w Version, _ struct{}) bool {
		if w < lo {
			lo = w
		}
		return true
	})
	return lo
}

// ScanResult is one key/value pair returned by ScanPrefix.
type ScanResult struct {
	Key   []byte
	Value []byte
}

// ScanPrefix returns, in ascending logical-key order, the latest value
// visible to this transaction for every logical key starting with prefix.
// Tombstones remove a key from the result set. The returned slice owns
// its data; it outlives the critical section used to produce it. A prefix
// whose last byte is 0x00 or 0xFF returns no results, because its encoded
// scan prefix ends in 0xFF (see storage.prefixUpperBound).
func (t *Txn) ScanPrefix(prefix []byte) ([]ScanResult, error) {
	if t.done {
		return nil, errors.New("mvcc: transaction already finished")
	}
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	it := t.mvcc.engine.ScanPrefix(scanPrefixKey(prefix))

	var results []ScanResult
	var curKey []byte
	var curValue []byte
	var curVisible bool
	var curHasValue bool

	flush := func() {
		if curKey != nil && curVisible && curHasValue {
			results = append(results, ScanResult{Key: curKey, Value: curValue})
		}
	}

	for {
		kv, ok, err := it.Next()
		if err != nil {
			return nil, errors.Wrap(ErrInternal, err.Error())
		}
		if !ok {
			break
		}
		logicalKey, version, err := decodeVersionKey(kv.Key)
		if err != nil {
			return nil, errors.Wrap(ErrInternal, err.Error())
		}
		if curKey == nil || !bytesEqual(curKey, logicalKey) {
			flush()
			curKey = logicalKey
			curVisible = false
			curHasValue = false
		}
		if !t.visible(version) {
			continue
		}
		value, present, err := decodeOptionalValue(kv.Value)
		if err != nil {
			return nil, err
		}
		curVisible = true
		curHasValue = present
		curValue = value
	}
	flush()
	return results, nil
}

// Commit removes this transaction's undo pointers and its TxnActive
// marker. Versioned records it wrote remain in place permanently.
func (t *Txn) Commit() error {
	if t.done {
		return errors.New("mvcc: transaction already finished")
	}
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	if err := t.deleteTxnWrites(); err != nil {
		return err
	}
	if err := t.mvcc.engine.Delete(encodeTxnActive(t.version)); err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	t.done = true
	t.mvcc.log.Debug("transaction committed", zap.Uint64("version", t.version))
	return nil
}

// Rollback deletes every Version record this transaction wrote, then its
// undo pointers, then its TxnActive marker. After Rollback, no version
// written by this transaction is ever visible to a future transaction.
func (t *Txn) Rollback() error {
	if t.done {
		return errors.New("mvcc: transaction already finished")
	}
	t.mvcc.mu.Lock()
	defer t.mvcc.mu.Unlock()

	keys, err := t.collectTxnWriteKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := t.mvcc.engine.Delete(encodeVersionKey(k, t.version)); err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
		if err := t.mvcc.engine.Delete(encodeTxnWrite(t.version, k)); err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
	}
	if err := t.mvcc.engine.Delete(encodeTxnActive(t.version)); err != nil {
		return errors.Wrap(ErrInternal, err.Error())
	}
	t.done = true
	t.mvcc.log.Debug("transaction rolled back", zap.Uint64("version", t.version), zap.Int("undone", len(keys)))
	return nil
}

func (t *Txn) collectTxnWriteKeys() ([][]byte, error) {
	prefix := txnWritePrefix(t.version)
	// The exclusive end must be the next version's prefix, not
	// prefixEnd(prefix): prefix ends in the low byte of a fixed-width
	// big-endian version counter, which wraps 0xFF -> 0x00 without carry
	// under a last-byte increment, producing an upper bound below start
	// whenever version&0xFF == 0xFF.
	it := t.mvcc.engine.Scan(storage.Range{Start: prefix, End: txnWritePrefix(t.version + 1)})
	var keys [][]byte
	for {
		kv, ok, err := it.Next()
		if err != nil {
			return nil, errors.Wrap(ErrInternal, err.Error())
		}
		if !ok {
			break
		}
		_, key, err := decodeTxnWrite(kv.Key)
		if err != nil {
			return nil, errors.Wrap(ErrInternal, err.Error())
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (t *Txn) deleteTxnWrites() error {
	keys, err := t.collectTxnWriteKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := t.mvcc.engine.Delete(encodeTxnWrite(t.version, k)); err != nil {
			return errors.Wrap(ErrInternal, err.Error())
		}
	}
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// encodeOptionalValue frames storage's value payload as Option<[]byte>: a
// presence byte, followed (only when present) by value passed through
// package valuecodec for checksum and optional compression. A nil value
// encodes None, the tombstone case described in spec.md §3.
func encodeOptionalValue(value []byte, kind valuecodec.Kind) ([]byte, error) {
	if value == nil {
		return []byte{0}, nil
	}
	framed, err := valuecodec.Encode(kind, value)
	if err != nil {
		return nil, errors.Wrap(ErrInternal, err.Error())
	}
	return append([]byte{1}, framed...), nil
}

func decodeOptionalValue(payload []byte) (value []byte, present bool, err error) {
	if len(payload) == 0 {
		return nil, false, errors.Wrap(ErrInternal, "mvcc: empty Version record payload")
	}
	if payload[0] == 0 {
		return nil, false, nil
	}
	v, err := valuecodec.Decode(payload[1:])
	if err != nil {
		return nil, false, errors.Wrap(ErrInternal, err.Error())
	}
	return v, true, nil
}
