// Package storage persists all the artifacts of the fundraising system in
// a prefixed key-value store: encrypted balances, operator grants,
// campaign records, per-contributor contribution handles, the engine's
// ciphertexts with their access-control list, and the asynchronous user
// decryption queue. The following prefixes are used:
//   - 'b/'  for encrypted balance handles, keyed by account
//   - 'o/'  for operator grants, keyed by owner+operator
//   - 'f/'  for campaign records, keyed by campaign ID
//   - 'c/'  for contribution handles, keyed by campaign ID + contributor
//   - 'x/'  for serialized ciphertexts, keyed by handle
//   - 'a/'  for decryption access grants, keyed by handle + account
//   - 'dq/' for pending decryption requests (queued)
//   - 'dr/' for resolved decryption results
//   - 'k/'  for the encryption engine key material
package storage

import (
	"errors"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
	"go.vocdoni.io/dvote/log"
)

var (
	// Prefixes for the keys in the database.
	balancePrefix      = []byte("b/")
	operatorPrefix     = []byte("o/")
	campaignPrefix     = []byte("f/")
	contributionPrefix = []byte("c/")
	ciphertextPrefix   = []byte("x/")
	aclPrefix          = []byte("a/")
	decryptReqPrefix   = []byte("dq/")
	decryptResPrefix   = []byte("dr/")
	engineKeyPrefix    = []byte("k/")
)

const (
	// maxKeySize is the maximum size of a hashed artifact key in bytes.
	maxKeySize = 12
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoMoreElements is returned by queue operations when the queue is
	// empty.
	ErrNoMoreElements = errors.New("no more elements")
)

// Storage wraps the key-value database with typed accessors for every
// artifact of the system. The single globalLock serializes units of work,
// providing the all-or-nothing semantics the contribute sequence needs.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
}

// New creates a new Storage instance over the given database.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage database", "error", err.Error())
	}
}

// Update runs fn inside a single write transaction under the global lock.
// If fn returns an error the transaction is discarded and no state
// change is observed; otherwise it is committed atomically. It is the
// unit-of-work primitive behind every multi-step mutation.
func (s *Storage) Update(fn func(wTx db.WriteTx) error) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	if err := fn(wTx); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// setArtifact encodes and stores an artifact in its own transaction.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	wTx := s.db.WriteTx()
	if err := s.setArtifactTx(wTx, prefix, key, artifact); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// setArtifactTx encodes and stores an artifact within a caller-owned
// transaction.
func (s *Storage) setArtifactTx(wTx db.WriteTx, prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(wTx, prefix).Set(key, data)
}

// getArtifact retrieves and decodes an artifact. Returns ErrNotFound if
// the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return decodeArtifact(data, out)
}

// getArtifactTx retrieves and decodes an artifact within a caller-owned
// transaction, so reads and the writes that depend on them are
// consistent.
func (s *Storage) getArtifactTx(wTx db.WriteTx, prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedWriteTx(wTx, prefix).Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return decodeArtifact(data, out)
}

// deleteArtifact removes an artifact in its own transaction.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// listArtifacts returns the keys stored under a prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		key := make([]byte, len(k))
		copy(key, k)
		keys = append(keys, key)
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
