package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

// requireRolesAuthority loads the role registry under an exclusive lock and
// checks the caller is one of its authorities.
func (e *Engine) requireRolesAuthority(ctx context.Context, tx pgx.Tx, authority solana.PublicKey) (store.RolesRecord, error) {
	rec, err := e.store.GetRoles(ctx, tx, e.rolesAddr, store.LockUpdate)
	if err != nil {
		return store.RolesRecord{}, err
	}
	if !rec.HasAuthority(authority) {
		return store.RolesRecord{}, protocol.ErrUnauthorized
	}
	return rec, nil
}

// AddAdmin appends a new authority to the role registry, up to the capacity
// of three.
func (e *Engine) AddAdmin(ctx context.Context, authority, newAdmin solana.PublicKey) error {
	if newAdmin.IsZero() {
		return protocol.ErrNoAuthorities
	}
	return e.run(ctx, "add_admin", func(tx pgx.Tx) error {
		rec, err := e.requireRolesAuthority(ctx, tx, authority)
		if err != nil {
			return err
		}
		if rec.HasAuthority(newAdmin) {
			return protocol.ErrAdminAlreadyExists
		}
		if len(rec.Authorities) >= protocol.MaxAdmins {
			return protocol.ErrTooManyAdmins
		}

		rec.Authorities = append(rec.Authorities, newAdmin)
		if err := e.store.UpdateRolesAuthorities(ctx, tx, e.rolesAddr, rec.Authorities); err != nil {
			return err
		}
		e.log.Info("engine: admin added", "admin", newAdmin.String(), "total", len(rec.Authorities))
		return nil
	})
}

// RemoveAdmin drops an authority from the role registry. The last remaining
// authority can never be removed.
func (e *Engine) RemoveAdmin(ctx context.Context, authority, admin solana.PublicKey) error {
	return e.run(ctx, "remove_admin", func(tx pgx.Tx) error {
		rec, err := e.requireRolesAuthority(ctx, tx, authority)
		if err != nil {
			return err
		}
		if !rec.HasAuthority(admin) {
			return protocol.ErrAdminNotFound
		}
		if len(rec.Authorities) <= 1 {
			return protocol.ErrLastAdmin
		}

		kept := make([]solana.PublicKey, 0, len(rec.Authorities)-1)
		for _, a := range rec.Authorities {
			if !a.Equals(admin) {
				kept = append(kept, a)
			}
		}
		if err := e.store.UpdateRolesAuthorities(ctx, tx, e.rolesAddr, kept); err != nil {
			return err
		}
		e.log.Info("engine: admin removed", "admin", admin.String(), "total", len(kept))
		return nil
	})
}

func validateGrant(grant store.RoleGrant) error {
	if grant.Holder.IsZero() {
		return protocol.ErrNoAuthorities
	}
	if !grant.RoleType.Valid() {
		return protocol.ErrInvalidRoleType
	}
	if grant.RoleType.NeedsCategory() {
		if !grant.Category.Valid() {
			return protocol.ErrInvalidCategory
		}
	} else if grant.Category != "" {
		return protocol.ErrInvalidCategory
	}
	return nil
}

// AddTreasuryRole grants a role to a holder. Duplicate (holder, role type,
// category) grants are rejected and the registry is capacity-bounded.
func (e *Engine) AddTreasuryRole(ctx context.Context, authority solana.PublicKey, grant store.RoleGrant) error {
	if err := validateGrant(grant); err != nil {
		return err
	}
	return e.run(ctx, "add_treasury_role", func(tx pgx.Tx) error {
		if _, err := e.requireRolesAuthority(ctx, tx, authority); err != nil {
			return err
		}
		count, err := e.store.CountGrants(ctx, tx, e.rolesAddr)
		if err != nil {
			return err
		}
		if count >= protocol.MaxTreasuryRoles {
			return protocol.ErrRolesCapacityExceeded
		}
		if err := e.store.InsertGrant(ctx, tx, e.rolesAddr, grant); err != nil {
			return err
		}
		e.log.Info("engine: treasury role added",
			"holder", grant.Holder.String(),
			"role_type", string(grant.RoleType),
			"category", string(grant.Category),
		)
		return nil
	})
}

// RemoveTreasuryRole revokes a grant. Removing a grant that does not exist
// is a no-op success so revocations can be retried safely.
func (e *Engine) RemoveTreasuryRole(ctx context.Context, authority, holder solana.PublicKey, roleType protocol.RoleType, category protocol.TreasuryCategory) error {
	return e.run(ctx, "remove_treasury_role", func(tx pgx.Tx) error {
		if _, err := e.requireRolesAuthority(ctx, tx, authority); err != nil {
			return err
		}
		removed, err := e.store.DeleteGrant(ctx, tx, e.rolesAddr, holder, roleType, category)
		if err != nil {
			return err
		}
		if !removed {
			e.log.Debug("engine: treasury role already absent", "holder", holder.String(), "role_type", string(roleType))
			return nil
		}
		e.log.Info("engine: treasury role removed", "holder", holder.String(), "role_type", string(roleType))
		return nil
	})
}

// UpdateTreasuryRole replaces the withdrawal bounds of an existing grant.
func (e *Engine) UpdateTreasuryRole(ctx context.Context, authority solana.PublicKey, grant store.RoleGrant) error {
	if err := validateGrant(grant); err != nil {
		return err
	}
	return e.run(ctx, "update_treasury_role", func(tx pgx.Tx) error {
		if _, err := e.requireRolesAuthority(ctx, tx, authority); err != nil {
			return err
		}
		updated, err := e.store.UpdateGrant(ctx, tx, e.rolesAddr, grant)
		if err != nil {
			return err
		}
		if !updated {
			return protocol.ErrRoleNotFound
		}
		e.log.Info("engine: treasury role updated", "holder", grant.Holder.String(), "role_type", string(grant.RoleType))
		return nil
	})
}
