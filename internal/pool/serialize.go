package pool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/aquifer-labs/aquifer/internal/accountmap"
)

// AccountTagSize is the length of the tag prefixing serialized state.
const AccountTagSize = 8

// accountTag identifies serialized pool state; it fills the slot an
// account discriminator occupies on chain.
var accountTag = [AccountTagSize]byte{'a', 'q', 'f', 'r', 'p', 'o', 'o', 'l'}

// RequiredBytes returns the exact serialized size of a pool whose
// registries are filled to the given capacities. This is the buffer to
// allocate when the pool is created.
func RequiredBytes(maxValidators, maxMaintainers uint32) int {
	return AccountTagSize + PoolConstantSize +
		accountmap.RequiredBytes[Validator](int(maxValidators)) +
		accountmap.RequiredBytes[accountmap.Unit](int(maxMaintainers))
}

// MarshaledSize returns the serialized size of the pool as it stands.
func (p *Pool) MarshaledSize() int {
	return AccountTagSize + PoolConstantSize +
		accountmap.HeaderSize + p.Validators.Len()*accountmap.EntrySize[Validator]() +
		accountmap.HeaderSize + p.Maintainers.Len()*accountmap.EntrySize[accountmap.Unit]()
}

// Marshal serializes the pool: the account tag followed by the borsh
// encoding of every field in declaration order.
func (p *Pool) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, p.MarshaledSize()))
	buf.Write(accountTag[:])
	if err := bin.NewBorshEncoder(buf).Encode(p); err != nil {
		return nil, fmt.Errorf("encode pool state: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal restores a pool from Marshal's output.
func Unmarshal(data []byte) (*Pool, error) {
	if len(data) < AccountTagSize || !bytes.Equal(data[:AccountTagSize], accountTag[:]) {
		return nil, ErrInvalidPoolData
	}
	p := new(Pool)
	if err := bin.NewBorshDecoder(data[AccountTagSize:]).Decode(p); err != nil {
		return nil, fmt.Errorf("decode pool state: %w", err)
	}
	return p, nil
}
