package engine

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"github.com/norugfun/ledger/ledger/pkg/protocol"
	"github.com/norugfun/ledger/ledger/pkg/store"
)

// InitializeConfig creates the singleton program config that names the admin
// authority. It can only ever succeed once per program namespace.
func (e *Engine) InitializeConfig(ctx context.Context, adminAuthority solana.PublicKey) error {
	if adminAuthority.IsZero() {
		return protocol.ErrNoAuthorities
	}
	return e.run(ctx, "initialize_config", func(tx pgx.Tx) error {
		if err := e.store.InsertConfig(ctx, tx, store.ConfigRecord{
			Address:        e.configAddr,
			AdminAuthority: adminAuthority,
			Bump:           e.configBump,
		}); err != nil {
			return err
		}
		e.log.Info("engine: config initialized", "admin", adminAuthority.String())
		return nil
	})
}

// InitializeTreasury creates the singleton treasury with all five
// sub-accounts zeroed.
func (e *Engine) InitializeTreasury(ctx context.Context, initialAuthority solana.PublicKey) error {
	if initialAuthority.IsZero() {
		return protocol.ErrNoAuthorities
	}
	return e.run(ctx, "initialize_treasury", func(tx pgx.Tx) error {
		if err := e.store.InsertTreasury(ctx, tx, store.TreasuryRecord{
			Address:   e.treasuryAddr,
			Authority: initialAuthority,
			Bump:      e.treasuryBump,
		}); err != nil {
			return err
		}
		e.log.Info("engine: treasury initialized", "authority", initialAuthority.String())
		return nil
	})
}

// InitializeTreasuryRoles creates the singleton role registry with its
// starting authority list.
func (e *Engine) InitializeTreasuryRoles(ctx context.Context, authorities []solana.PublicKey) error {
	if len(authorities) == 0 {
		return protocol.ErrNoAuthorities
	}
	if len(authorities) > protocol.MaxAdmins {
		return protocol.ErrTooManyAdmins
	}
	for _, a := range authorities {
		if a.IsZero() {
			return protocol.ErrNoAuthorities
		}
	}
	return e.run(ctx, "initialize_treasury_roles", func(tx pgx.Tx) error {
		if err := e.store.InsertRoles(ctx, tx, store.RolesRecord{
			Address:     e.rolesAddr,
			Authorities: authorities,
			Bump:        e.rolesBump,
		}); err != nil {
			return err
		}
		e.log.Info("engine: treasury roles initialized", "authorities", len(authorities))
		return nil
	})
}
