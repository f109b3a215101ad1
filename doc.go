// Package capshield provides a capped fungible token ledger for Go
// applications.
//
// CapShield is designed as a library, not a service. Import it into your
// application and drive it through method calls. It provides:
//
//   - A hard cap on cumulative minting that burns never give back
//   - Role-gated mint entry points and an owner backed by multi-party control
//   - A basis-point transfer fee split into a burn and a treasury share
//   - Fee exemptions, a pause switch and two-step ownership handover
//   - An append-only audit log and checkpoints through a pluggable store
//   - Lifecycle hooks for audit trails and metrics
//
// # Quick Start
//
// Create a ledger whose owner is a registered multisig wallet:
//
//	wallets := multisig.NewRegistry()
//	owner, err := wallets.Create("ops", []common.Address{a, b, c}, 2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l, err := capshield.NewAllocationLedger(ctx, owner.Address, treasury, dao, wallets,
//	    capshield.WithStore(postgres.New(db)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Variants
//
// The reward variant is fee free and mints through RewardMint. The
// allocation variant charges 1% burn and 1% treasury on every non-exempt
// transfer and mints through TeamMint, TreasuryMint, DaoMint and
// RevenueMint. Calling an entry point the variant lacks fails with
// ErrUnsupported.
//
// # Supply
//
// Every mint checks TotalMinted + amount <= MaxSupply. Burns lower
// TotalSupply only:
//
//	l.TeamMint(ctx, minter, alice, capshield.Units(100))
//	l.Burn(ctx, alice, capshield.Units(100))
//	l.RemainingMintableSupply() // still MaxSupply - 100
//
// # Atomicity
//
// Each mutating call runs under one lock. Its events are written to the
// store before the call commits; if anything fails, every state change the
// call made is rolled back and no event is visible.
//
// # Amounts
//
// Amounts are *uint256.Int base units with 18 decimals. Use Units,
// ParseUnits and FormatUnits to convert from and to whole tokens.
package capshield
