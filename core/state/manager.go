package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/Wenbobobo/Solease/storage"
)

var errNotJournaled = errors.New("state: manager is not a journal")

type pendingWrite struct {
	value   []byte
	deleted bool
}

// Manager reads and writes RLP-encoded protocol records. The root manager
// writes straight through to the database; a journal obtained from Begin
// buffers writes until Commit flushes them in a single batch.
type Manager struct {
	db      storage.Database
	pending map[string]pendingWrite
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a journal over the committed state.
func (m *Manager) Begin() *Manager {
	return &Manager{db: m.db, pending: make(map[string]pendingWrite)}
}

// Journaled reports whether writes are buffered.
func (m *Manager) Journaled() bool { return m.pending != nil }

// Pending returns the number of buffered writes.
func (m *Manager) Pending() int { return len(m.pending) }

// Commit writes the journal to the database atomically and resets it.
func (m *Manager) Commit() error {
	if m.pending == nil {
		return errNotJournaled
	}
	keys := make([]string, 0, len(m.pending))
	for key := range m.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := m.db.NewBatch()
	for _, key := range keys {
		write := m.pending[key]
		if write.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), write.value)
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.pending = make(map[string]pendingWrite)
	return nil
}

// Discard drops every buffered write.
func (m *Manager) Discard() {
	if m.pending == nil {
		return
	}
	m.pending = make(map[string]pendingWrite)
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if m.pending != nil {
		if write, ok := m.pending[string(key)]; ok {
			if write.deleted {
				return nil, nil
			}
			return write.value, nil
		}
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) put(key, value []byte) error {
	if m.pending != nil {
		m.pending[string(key)] = pendingWrite{value: append([]byte(nil), value...)}
		return nil
	}
	return m.db.Put(key, value)
}

func (m *Manager) del(key []byte) error {
	if m.pending != nil {
		m.pending[string(key)] = pendingWrite{deleted: true}
		return nil
	}
	err := m.db.Delete(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return buf
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the database.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.put(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.get(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.del(kvKey(key))
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("kv: destination must be a non-nil pointer")
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must point to a slice")
	}
	ok, err := m.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
	}
	return nil
}
