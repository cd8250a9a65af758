package app

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"gorbadome/chain/internal/codec"
	"gorbadome/chain/internal/state"
)

// insuranceFee is the flat continue-insurance price in base token units.
const insuranceFee uint64 = 1_000_000

// contestBuyInsurance sets the insurance flag on a live entry for a
// flat fee. Orthogonal to settlement: the flag never affects ranking or
// payouts.
func contestBuyInsurance(st *state.State, msg codec.ContestBuyInsuranceTx) (*abci.ExecTxResult, error) {
	if _, err := requireContest(st); err != nil {
		return nil, err
	}
	if msg.Player == "" {
		return nil, fmt.Errorf("missing player")
	}
	e, ok := st.Entries[msg.Player]
	if !ok {
		return nil, fmt.Errorf("no entry for player %q this epoch", msg.Player)
	}
	if e.Revealed {
		return nil, fmt.Errorf("%w: %s", ErrRunAlreadyCompleted, msg.Player)
	}
	if e.Player != msg.Player {
		return nil, fmt.Errorf("%w: entry belongs to %q", ErrUnauthorizedPlayer, e.Player)
	}
	if e.InsurancePurchased {
		return nil, fmt.Errorf("%w: %s", ErrInsuranceAlreadyPurchased, msg.Player)
	}

	if err := st.Transfer(msg.Player, vaultAccount, insuranceFee); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	e.InsurancePurchased = true

	return okEvent("InsurancePurchased", map[string]string{
		"player": msg.Player,
		"fee":    fmt.Sprintf("%d", insuranceFee),
	}), nil
}

// contestMintPass issues the player's collectible pass. Stateless with
// respect to settlement; one pass per player.
func contestMintPass(st *state.State, msg codec.ContestMintPassTx, now int64) (*abci.ExecTxResult, error) {
	if msg.Player == "" {
		return nil, fmt.Errorf("missing player")
	}
	if st.Passes[msg.Player] != nil {
		return nil, fmt.Errorf("pass already minted for %q", msg.Player)
	}

	st.Passes[msg.Player] = &state.Pass{
		Owner:    msg.Player,
		MintTime: now,
		IsActive: true,
	}

	return okEvent("PassMinted", map[string]string{
		"player": msg.Player,
		"time":   fmt.Sprintf("%d", now),
	}), nil
}
