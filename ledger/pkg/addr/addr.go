// Package addr derives deterministic record addresses. A record's address is
// a program-derived address computed from a namespace tag plus its parent
// keys, so any component can recompute where a record lives instead of
// consulting a directory. The returned bump is the uniqueness nonce found
// during derivation and is persisted with the record.
package addr

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// Namespace tags. One per record type; two distinct (namespace, parents)
// pairs never collide.
const (
	nsConfig        = "config"
	nsEpoch         = "epoch"
	nsProposal      = "proposal"
	nsSupport       = "support"
	nsTreasury      = "treasury"
	nsTreasuryRoles = "treasury_roles"
)

// Derive computes the address and bump for a namespace and ordered parent
// keys under the given program. Derivation exhaustion (no valid bump) is
// fatal for the creation attempt that requested it.
func Derive(program solana.PublicKey, namespace string, parents ...[][]byte) (solana.PublicKey, uint8, error) {
	seeds := make([][]byte, 0, 8)
	seeds = append(seeds, []byte(namespace))
	for _, group := range parents {
		seeds = append(seeds, group...)
	}
	address, bump, err := solana.FindProgramAddress(seeds, program)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("%w: %s/%v", protocol.ErrDerivationExhausted, namespace, err)
	}
	return address, bump, nil
}

// Config derives the singleton program config address.
func Config(program solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Derive(program, nsConfig)
}

// Treasury derives the singleton treasury address.
func Treasury(program solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Derive(program, nsTreasury)
}

// TreasuryRoles derives the singleton role registry address.
func TreasuryRoles(program solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Derive(program, nsTreasuryRoles)
}

// Epoch derives the address of one epoch record.
func Epoch(program solana.PublicKey, epochID uint64) (solana.PublicKey, uint8, error) {
	return Derive(program, nsEpoch, [][]byte{epochIDBytes(epochID)})
}

// Proposal derives the address of one proposal record. The key is
// (creator, epoch, token name).
func Proposal(program, creator solana.PublicKey, epochID uint64, tokenName string) (solana.PublicKey, uint8, error) {
	return Derive(program, nsProposal, [][]byte{
		creator.Bytes(),
		epochIDBytes(epochID),
		[]byte(tokenName),
	})
}

// Support derives the address of one user's support record for a proposal.
func Support(program solana.PublicKey, epochID uint64, user, proposal solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Derive(program, nsSupport, [][]byte{
		epochIDBytes(epochID),
		user.Bytes(),
		proposal.Bytes(),
	})
}

func epochIDBytes(epochID uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, epochID)
	return b
}
