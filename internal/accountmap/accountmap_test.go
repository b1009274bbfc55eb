package accountmap

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weight struct {
	Grams uint64
}

func (weight) ConstantSerializedSize() int { return 8 }

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	return k
}

func TestAddAndGet(t *testing.T) {
	m := New[weight](4)
	require.NoError(t, m.Add(key(1), weight{Grams: 10}))
	require.NoError(t, m.Add(key(2), weight{Grams: 20}))
	assert.Equal(t, 2, m.Len())

	entry, err := m.Get(key(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(20), entry.Value.Grams)

	_, err = m.Get(key(9))
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestGetAllowsInPlaceMutation(t *testing.T) {
	m := New[weight](4)
	require.NoError(t, m.Add(key(1), weight{Grams: 10}))

	entry, err := m.Get(key(1))
	require.NoError(t, err)
	entry.Value.Grams = 99

	entry, err = m.Get(key(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(99), entry.Value.Grams)
}

func TestAddDuplicate(t *testing.T) {
	m := New[weight](4)
	require.NoError(t, m.Add(key(1), weight{Grams: 10}))
	err := m.Add(key(1), weight{Grams: 11})
	assert.ErrorIs(t, err, ErrDuplicateEntry)

	// The original value survives the failed insert.
	entry, err := m.Get(key(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), entry.Value.Grams)
	assert.Equal(t, 1, m.Len())
}

func TestAddBeyondCapacity(t *testing.T) {
	m := New[weight](2)
	require.NoError(t, m.Add(key(1), weight{}))
	require.NoError(t, m.Add(key(2), weight{}))
	err := m.Add(key(3), weight{})
	assert.ErrorIs(t, err, ErrMaximumEntriesExceeded)
	assert.Equal(t, 2, m.Len())
	assert.False(t, m.Contains(key(3)))
}

func TestZeroCapacity(t *testing.T) {
	m := New[weight](0)
	err := m.Add(key(1), weight{})
	assert.ErrorIs(t, err, ErrMaximumEntriesExceeded)
}

func TestRemoveSwapsLastEntry(t *testing.T) {
	m := New[weight](4)
	require.NoError(t, m.Add(key(1), weight{Grams: 10}))
	require.NoError(t, m.Add(key(2), weight{Grams: 20}))
	require.NoError(t, m.Add(key(3), weight{Grams: 30}))

	removed, err := m.Remove(key(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), removed.Grams)
	assert.Equal(t, 2, m.Len())

	// The last entry took the vacated slot.
	assert.Equal(t, key(3), m.Entries[0].Pubkey)
	assert.True(t, m.Contains(key(2)))
	assert.False(t, m.Contains(key(1)))
}

func TestRemoveMissing(t *testing.T) {
	m := New[weight](4)
	require.NoError(t, m.Add(key(1), weight{}))
	_, err := m.Remove(key(2))
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.Equal(t, 1, m.Len())
}

func TestReAddAfterRemove(t *testing.T) {
	m := New[weight](1)
	require.NoError(t, m.Add(key(1), weight{}))
	_, err := m.Remove(key(1))
	require.NoError(t, err)
	require.NoError(t, m.Add(key(1), weight{Grams: 2}))
}

func TestNewFilled(t *testing.T) {
	m := NewFilled[weight](3, weight{Grams: 7})
	assert.Equal(t, 3, m.Len())
	for _, entry := range m.Entries {
		assert.Equal(t, uint64(7), entry.Value.Grams)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := New[weight](4)
	require.NoError(t, m.Add(key(1), weight{Grams: 10}))

	clone := m.Clone()
	entry, err := clone.Get(key(1))
	require.NoError(t, err)
	entry.Value.Grams = 42
	require.NoError(t, clone.Add(key(2), weight{}))

	entry, err = m.Get(key(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), entry.Value.Grams)
	assert.Equal(t, 1, m.Len())
}

func TestAccountSet(t *testing.T) {
	s := NewSet(2)
	require.NoError(t, s.Add(key(1)))
	assert.ErrorIs(t, s.Add(key(1)), ErrDuplicateEntry)
	require.NoError(t, s.Add(key(2)))
	assert.ErrorIs(t, s.Add(key(3)), ErrMaximumEntriesExceeded)

	assert.True(t, s.Contains(key(1)))
	require.NoError(t, s.Remove(key(1)))
	assert.False(t, s.Contains(key(1)))
	assert.ErrorIs(t, s.Remove(key(1)), ErrEntryNotFound)
}

func TestEntrySizes(t *testing.T) {
	assert.Equal(t, 40, EntrySize[weight]())
	assert.Equal(t, 32, EntrySize[Unit]())
	assert.Equal(t, HeaderSize+3*40, RequiredBytes[weight](3))
	assert.Equal(t, HeaderSize, RequiredBytes[Unit](0))
}

// MaximumEntries must be the exact inverse of RequiredBytes: for every
// buffer size that covers the header, the reported capacity fits, and
// one more entry does not. Buffers too small for the header hold
// nothing.
func TestMaximumEntriesInverseOfRequiredBytes(t *testing.T) {
	for buf := 0; buf < HeaderSize; buf++ {
		assert.Equal(t, 0, MaximumEntries[weight](buf))
		assert.Equal(t, 0, MaximumEntries[Unit](buf))
	}
	for buf := HeaderSize; buf <= 4096; buf++ {
		n := MaximumEntries[weight](buf)
		assert.LessOrEqual(t, RequiredBytes[weight](n), buf)
		assert.Greater(t, RequiredBytes[weight](n+1), buf)

		n = MaximumEntries[Unit](buf)
		assert.LessOrEqual(t, RequiredBytes[Unit](n), buf)
		assert.Greater(t, RequiredBytes[Unit](n+1), buf)
	}
}
