package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// ProposalRecord is one creator's token-launch terms plus its funding
// counters. EscrowLamports is the balance physically held by the proposal
// (net contributions awaiting validation or reclaim).
type ProposalRecord struct {
	Address             solana.PublicKey
	EpochID             uint64
	Creator             solana.PublicKey
	TokenName           string
	TokenSymbol         string
	Description         string
	ImageURL            *string
	TotalSupply         uint64
	CreatorAllocation   uint8
	SupporterAllocation uint8
	SolRaised           uint64
	TotalContributions  uint64
	LockupPeriod        int64
	Status              protocol.ProposalStatus
	EscrowLamports      uint64
	Bump                uint8
}

const proposalColumns = `address, epoch_id, creator, token_name, token_symbol, description, image_url,
	total_supply, creator_allocation, supporter_allocation, sol_raised, total_contributions,
	lockup_period, status, escrow_lamports, bump`

func scanProposal(row pgx.Row) (ProposalRecord, error) {
	var rec ProposalRecord
	var addrStr, creatorStr, status string
	var epochID, totalSupply, solRaised, totalContribs, escrow int64
	var creatorAlloc, supporterAlloc, bump int16

	err := row.Scan(&addrStr, &epochID, &creatorStr, &rec.TokenName, &rec.TokenSymbol,
		&rec.Description, &rec.ImageURL, &totalSupply, &creatorAlloc, &supporterAlloc,
		&solRaised, &totalContribs, &rec.LockupPeriod, &status, &escrow, &bump)
	if err != nil {
		return ProposalRecord{}, err
	}

	if rec.Address, err = solana.PublicKeyFromBase58(addrStr); err != nil {
		return ProposalRecord{}, fmt.Errorf("failed to parse proposal address: %w", err)
	}
	if rec.Creator, err = solana.PublicKeyFromBase58(creatorStr); err != nil {
		return ProposalRecord{}, fmt.Errorf("failed to parse proposal creator: %w", err)
	}
	rec.EpochID = uint64(epochID)
	rec.TotalSupply = uint64(totalSupply)
	rec.CreatorAllocation = uint8(creatorAlloc)
	rec.SupporterAllocation = uint8(supporterAlloc)
	rec.SolRaised = uint64(solRaised)
	rec.TotalContributions = uint64(totalContribs)
	rec.Status = protocol.ProposalStatus(status)
	rec.EscrowLamports = uint64(escrow)
	rec.Bump = uint8(bump)
	return rec, nil
}

func (s *Store) InsertProposal(ctx context.Context, db DB, rec ProposalRecord) error {
	_, err := db.Exec(ctx, `
		INSERT INTO proposals (address, epoch_id, creator, token_name, token_symbol, description,
			image_url, total_supply, creator_allocation, supporter_allocation, sol_raised,
			total_contributions, lockup_period, status, escrow_lamports, bump)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, rec.Address.String(), int64(rec.EpochID), rec.Creator.String(), rec.TokenName,
		rec.TokenSymbol, rec.Description, rec.ImageURL, int64(rec.TotalSupply),
		int16(rec.CreatorAllocation), int16(rec.SupporterAllocation), int64(rec.SolRaised),
		int64(rec.TotalContributions), rec.LockupPeriod, string(rec.Status),
		int64(rec.EscrowLamports), int16(rec.Bump))
	if err != nil {
		if isUniqueViolation(err) {
			return protocol.ErrProposalAlreadyExists
		}
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, db DB, address solana.PublicKey, lock RowLock) (ProposalRecord, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE address = $1` + lock.clause()
	rec, err := scanProposal(db.QueryRow(ctx, query, address.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProposalRecord{}, protocol.ErrProposalNotFound
		}
		return ProposalRecord{}, fmt.Errorf("failed to get proposal: %w", err)
	}
	return rec, nil
}

// UpdateProposal persists every mutable proposal field.
func (s *Store) UpdateProposal(ctx context.Context, db DB, rec ProposalRecord) error {
	tag, err := db.Exec(ctx, `
		UPDATE proposals
		SET token_name = $2, token_symbol = $3, description = $4, image_url = $5,
			total_supply = $6, creator_allocation = $7, supporter_allocation = $8,
			sol_raised = $9, total_contributions = $10, lockup_period = $11,
			status = $12, escrow_lamports = $13
		WHERE address = $1
	`, rec.Address.String(), rec.TokenName, rec.TokenSymbol, rec.Description, rec.ImageURL,
		int64(rec.TotalSupply), int16(rec.CreatorAllocation), int16(rec.SupporterAllocation),
		int64(rec.SolRaised), int64(rec.TotalContributions), rec.LockupPeriod,
		string(rec.Status), int64(rec.EscrowLamports))
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return protocol.ErrProposalNotFound
	}
	return nil
}

// ListProposalsByEpoch returns every proposal belonging to one epoch.
func (s *Store) ListProposalsByEpoch(ctx context.Context, db DB, epochID uint64) ([]ProposalRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT `+proposalColumns+`
		FROM proposals
		WHERE epoch_id = $1
		ORDER BY token_name
	`, int64(epochID))
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []ProposalRecord
	for rows.Next() {
		rec, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
