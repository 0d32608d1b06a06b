package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
)

// RolesRecord is the singleton role registry: the 1..3 authorities allowed to
// manage treasury roles, plus the capacity-bounded grant list.
type RolesRecord struct {
	Address     solana.PublicKey
	Authorities []solana.PublicKey
	Bump        uint8
}

// HasAuthority reports whether key is one of the listed authorities.
func (r *RolesRecord) HasAuthority(key solana.PublicKey) bool {
	for _, a := range r.Authorities {
		if a.Equals(key) {
			return true
		}
	}
	return false
}

// RoleGrant is one role held by one identity, optionally scoped to a
// treasury category and bounded by withdrawal limits.
type RoleGrant struct {
	Holder           solana.PublicKey
	RoleType         protocol.RoleType
	Category         protocol.TreasuryCategory // empty for admin-type grants
	WithdrawalLimit  *uint64
	WithdrawalPeriod *int64
}

func (s *Store) InsertRoles(ctx context.Context, db DB, rec RolesRecord) error {
	authorities := make([]string, len(rec.Authorities))
	for i, a := range rec.Authorities {
		authorities[i] = a.String()
	}
	_, err := db.Exec(ctx, `
		INSERT INTO treasury_roles (address, authorities, bump)
		VALUES ($1, $2, $3)
	`, rec.Address.String(), authorities, int16(rec.Bump))
	if err != nil {
		if isUniqueViolation(err) {
			return protocol.ErrRolesAlreadyInitialized
		}
		return fmt.Errorf("failed to insert treasury roles: %w", err)
	}
	return nil
}

func (s *Store) GetRoles(ctx context.Context, db DB, address solana.PublicKey, lock RowLock) (RolesRecord, error) {
	query := `SELECT address, authorities, bump FROM treasury_roles WHERE address = $1` + lock.clause()

	var rec RolesRecord
	var addrStr string
	var authorities []string
	var bump int16

	err := db.QueryRow(ctx, query, address.String()).Scan(&addrStr, &authorities, &bump)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RolesRecord{}, protocol.ErrRolesNotInitialized
		}
		return RolesRecord{}, fmt.Errorf("failed to get treasury roles: %w", err)
	}

	if rec.Address, err = solana.PublicKeyFromBase58(addrStr); err != nil {
		return RolesRecord{}, fmt.Errorf("failed to parse roles address: %w", err)
	}
	rec.Authorities = make([]solana.PublicKey, len(authorities))
	for i, a := range authorities {
		if rec.Authorities[i], err = solana.PublicKeyFromBase58(a); err != nil {
			return RolesRecord{}, fmt.Errorf("failed to parse authority: %w", err)
		}
	}
	rec.Bump = uint8(bump)
	return rec, nil
}

// UpdateRolesAuthorities persists the admin authority list.
func (s *Store) UpdateRolesAuthorities(ctx context.Context, db DB, address solana.PublicKey, authorities []solana.PublicKey) error {
	strs := make([]string, len(authorities))
	for i, a := range authorities {
		strs[i] = a.String()
	}
	tag, err := db.Exec(ctx, `
		UPDATE treasury_roles SET authorities = $2 WHERE address = $1
	`, address.String(), strs)
	if err != nil {
		return fmt.Errorf("failed to update authorities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return protocol.ErrRolesNotInitialized
	}
	return nil
}

// CountGrants returns the number of grants attached to the registry.
func (s *Store) CountGrants(ctx context.Context, db DB, rolesAddress solana.PublicKey) (int, error) {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM treasury_role_grants WHERE roles_address = $1
	`, rolesAddress.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count role grants: %w", err)
	}
	return count, nil
}

func (s *Store) InsertGrant(ctx context.Context, db DB, rolesAddress solana.PublicKey, grant RoleGrant) error {
	var limit, period any
	if grant.WithdrawalLimit != nil {
		limit = int64(*grant.WithdrawalLimit)
	}
	if grant.WithdrawalPeriod != nil {
		period = *grant.WithdrawalPeriod
	}
	_, err := db.Exec(ctx, `
		INSERT INTO treasury_role_grants (roles_address, holder, role_type, category, withdrawal_limit, withdrawal_period)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rolesAddress.String(), grant.Holder.String(), string(grant.RoleType), string(grant.Category), limit, period)
	if err != nil {
		if isUniqueViolation(err) {
			return protocol.ErrRoleAlreadyExists
		}
		return fmt.Errorf("failed to insert role grant: %w", err)
	}
	return nil
}

// DeleteGrant removes one grant and reports whether it existed.
func (s *Store) DeleteGrant(ctx context.Context, db DB, rolesAddress, holder solana.PublicKey, roleType protocol.RoleType, category protocol.TreasuryCategory) (bool, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM treasury_role_grants
		WHERE roles_address = $1 AND holder = $2 AND role_type = $3 AND category = $4
	`, rolesAddress.String(), holder.String(), string(roleType), string(category))
	if err != nil {
		return false, fmt.Errorf("failed to delete role grant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateGrant rewrites the withdrawal bounds of one grant and reports
// whether it existed.
func (s *Store) UpdateGrant(ctx context.Context, db DB, rolesAddress solana.PublicKey, grant RoleGrant) (bool, error) {
	var limit, period any
	if grant.WithdrawalLimit != nil {
		limit = int64(*grant.WithdrawalLimit)
	}
	if grant.WithdrawalPeriod != nil {
		period = *grant.WithdrawalPeriod
	}
	tag, err := db.Exec(ctx, `
		UPDATE treasury_role_grants
		SET withdrawal_limit = $5, withdrawal_period = $6
		WHERE roles_address = $1 AND holder = $2 AND role_type = $3 AND category = $4
	`, rolesAddress.String(), grant.Holder.String(), string(grant.RoleType), string(grant.Category), limit, period)
	if err != nil {
		return false, fmt.Errorf("failed to update role grant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListGrants returns every grant in the registry.
func (s *Store) ListGrants(ctx context.Context, db DB, rolesAddress solana.PublicKey) ([]RoleGrant, error) {
	rows, err := db.Query(ctx, `
		SELECT holder, role_type, category, withdrawal_limit, withdrawal_period
		FROM treasury_role_grants
		WHERE roles_address = $1
		ORDER BY holder, role_type, category
	`, rolesAddress.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list role grants: %w", err)
	}
	defer rows.Close()

	var out []RoleGrant
	for rows.Next() {
		var grant RoleGrant
		var holderStr, roleType, category string
		var limit *int64
		var period *int64
		if err := rows.Scan(&holderStr, &roleType, &category, &limit, &period); err != nil {
			return nil, fmt.Errorf("failed to scan role grant: %w", err)
		}
		if grant.Holder, err = solana.PublicKeyFromBase58(holderStr); err != nil {
			return nil, fmt.Errorf("failed to parse grant holder: %w", err)
		}
		grant.RoleType = protocol.RoleType(roleType)
		grant.Category = protocol.TreasuryCategory(category)
		if limit != nil {
			v := uint64(*limit)
			grant.WithdrawalLimit = &v
		}
		grant.WithdrawalPeriod = period
		out = append(out, grant)
	}
	return out, rows.Err()
}
