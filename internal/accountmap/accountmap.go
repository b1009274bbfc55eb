// Package accountmap provides fixed-capacity registries keyed by
// account public key. Capacity is set at construction and the
// serialized size of a full registry is a constant, so storage can be
// allocated once up front.
package accountmap

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrMaximumEntriesExceeded = errors.New("registry is at maximum capacity")
	ErrDuplicateEntry         = errors.New("entry already exists in registry")
	ErrEntryNotFound          = errors.New("entry does not exist in registry")
)

// HeaderSize is the serialized overhead of a registry: the 4-byte
// vector length plus the 4-byte MaximumEntries field.
const HeaderSize = 8

// ConstantSize is implemented by registry values whose serialized
// encoding has a fixed length.
type ConstantSize interface {
	ConstantSerializedSize() int
}

// Entry pairs an account key with its registry value.
type Entry[V any] struct {
	Pubkey solana.PublicKey
	Value  V
}

// AccountMap is a bounded collection of entries with O(n) lookups.
// Entry order carries no meaning: removal swaps the last entry into
// the vacated slot.
type AccountMap[V ConstantSize] struct {
	Entries        []Entry[V]
	MaximumEntries uint32
}

// New returns an empty registry that can hold up to maximumEntries.
func New[V ConstantSize](maximumEntries uint32) AccountMap[V] {
	return AccountMap[V]{
		Entries:        make([]Entry[V], 0, maximumEntries),
		MaximumEntries: maximumEntries,
	}
}

// NewFilled returns a registry with every slot occupied by fill. It
// exists only to size storage buffers: all keys are the zero key, so
// the result is useless for lookups.
func NewFilled[V ConstantSize](maximumEntries uint32, fill V) AccountMap[V] {
	m := New[V](maximumEntries)
	for i := uint32(0); i < maximumEntries; i++ {
		m.Entries = append(m.Entries, Entry[V]{Value: fill})
	}
	return m
}

// Len returns the number of entries currently held.
func (m *AccountMap[V]) Len() int { return len(m.Entries) }

// Add inserts value under key. The registry is left unchanged when the
// key is already present or the registry is full.
func (m *AccountMap[V]) Add(key solana.PublicKey, value V) error {
	if len(m.Entries) >= int(m.MaximumEntries) {
		return ErrMaximumEntriesExceeded
	}
	if m.Contains(key) {
		return ErrDuplicateEntry
	}
	m.Entries = append(m.Entries, Entry[V]{Pubkey: key, Value: value})
	return nil
}

// Remove deletes the entry under key and returns its value.
func (m *AccountMap[V]) Remove(key solana.PublicKey) (V, error) {
	for i := range m.Entries {
		if m.Entries[i].Pubkey.Equals(key) {
			removed := m.Entries[i].Value
			last := len(m.Entries) - 1
			m.Entries[i] = m.Entries[last]
			m.Entries = m.Entries[:last]
			return removed, nil
		}
	}
	var zero V
	return zero, ErrEntryNotFound
}

// Get returns a pointer to the entry under key for in-place mutation.
// The pointer is valid until the next Add or Remove.
func (m *AccountMap[V]) Get(key solana.PublicKey) (*Entry[V], error) {
	for i := range m.Entries {
		if m.Entries[i].Pubkey.Equals(key) {
			return &m.Entries[i], nil
		}
	}
	return nil, ErrEntryNotFound
}

// Contains reports whether key is present.
func (m *AccountMap[V]) Contains(key solana.PublicKey) bool {
	for i := range m.Entries {
		if m.Entries[i].Pubkey.Equals(key) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the registry.
func (m *AccountMap[V]) Clone() AccountMap[V] {
	entries := make([]Entry[V], len(m.Entries), m.MaximumEntries)
	copy(entries, m.Entries)
	return AccountMap[V]{Entries: entries, MaximumEntries: m.MaximumEntries}
}

// EntrySize returns the serialized size of one entry holding a V.
func EntrySize[V ConstantSize]() int {
	var v V
	return solana.PublicKeyLength + v.ConstantSerializedSize()
}

// RequiredBytes returns the exact buffer size needed to hold a
// serialized registry filled to maxEntries.
func RequiredBytes[V ConstantSize](maxEntries int) int {
	return HeaderSize + maxEntries*EntrySize[V]()
}

// MaximumEntries returns how many entries a buffer of bufferSize bytes
// can hold. It is the exact inverse of RequiredBytes: growing a buffer
// by less than one entry size admits no additional entry.
func MaximumEntries[V ConstantSize](bufferSize int) int {
	if bufferSize < HeaderSize {
		return 0
	}
	return (bufferSize - HeaderSize) / EntrySize[V]()
}

// Unit is the empty registry value; it serializes to nothing.
type Unit struct{}

// ConstantSerializedSize implements ConstantSize.
func (Unit) ConstantSerializedSize() int { return 0 }

// AccountSet is a registry of bare account keys.
type AccountSet struct {
	AccountMap[Unit]
}

// NewSet returns an empty AccountSet with the given capacity.
func NewSet(maximumEntries uint32) AccountSet {
	return AccountSet{New[Unit](maximumEntries)}
}

// Add inserts key into the set.
func (s *AccountSet) Add(key solana.PublicKey) error {
	return s.AccountMap.Add(key, Unit{})
}

// Remove deletes key from the set.
func (s *AccountSet) Remove(key solana.PublicKey) error {
	_, err := s.AccountMap.Remove(key)
	return err
}

// Clone returns a deep copy of the set.
func (s *AccountSet) Clone() AccountSet {
	return AccountSet{s.AccountMap.Clone()}
}
