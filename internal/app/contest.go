package app

import (
	"fmt"
	"math/bits"

	abci "github.com/cometbft/cometbft/abci/types"

	"gorbadome/chain/internal/codec"
	"gorbadome/chain/internal/commitment"
	"gorbadome/chain/internal/prize"
	"gorbadome/chain/internal/state"
)

// vaultAccount holds pool custody: gross wagers and insurance fees flow
// in, prize payouts flow out. Floor-division remainders stay here.
const vaultAccount = "gorbadome/vault"

// houseFee is floor(gross * pct / 100) with a 128-bit intermediate.
// pct is validated <= 100 at initialize, which keeps the quotient
// within 64 bits.
func houseFee(gross uint64, pct uint8) uint64 {
	if gross == 0 || pct == 0 {
		return 0
	}
	hi, lo := bits.Mul64(gross, uint64(pct))
	q, _ := bits.Div64(hi, lo, 100)
	return q
}

// requireAuthority gates privileged operations on the identity fixed at
// initialize. The authority is not rotatable.
func requireAuthority(c *state.Contest, caller string) error {
	if caller == "" {
		return fmt.Errorf("missing caller")
	}
	if caller != c.Authority {
		return fmt.Errorf("%w: caller %q is not the contest authority", ErrUnauthorized, caller)
	}
	return nil
}

func requireContest(st *state.State) (*state.Contest, error) {
	if st.Contest == nil {
		return nil, fmt.Errorf("%w: contest not initialized", ErrContestNotActive)
	}
	return st.Contest, nil
}

func contestInitialize(st *state.State, msg codec.ContestInitializeTx, now int64) (*abci.ExecTxResult, error) {
	if st.Contest != nil {
		return nil, fmt.Errorf("contest already initialized")
	}
	if msg.Authority == "" {
		return nil, fmt.Errorf("missing authority")
	}
	if msg.HouseFeePercent > 100 {
		return nil, fmt.Errorf("%w: houseFeePercent=%d exceeds 100", ErrInvalidFee, msg.HouseFeePercent)
	}
	if msg.EpochLengthSecs <= 0 {
		return nil, fmt.Errorf("epochLengthSecs must be > 0")
	}

	st.Contest = &state.Contest{
		Authority:       msg.Authority,
		HouseFeePercent: msg.HouseFeePercent,
		EpochLength:     msg.EpochLengthSecs,
		EpochStart:      now,
		EpochID:         1,
		PoolTotal:       0,
		IsOpen:          true,
	}
	return okEvent("ContestInitialized", map[string]string{
		"authority":       msg.Authority,
		"houseFeePercent": fmt.Sprintf("%d", msg.HouseFeePercent),
		"epochLengthSecs": fmt.Sprintf("%d", msg.EpochLengthSecs),
		"epochId":         "1",
	}), nil
}

func contestEnter(st *state.State, msg codec.ContestEnterTx, now int64) (*abci.ExecTxResult, error) {
	c, err := requireContest(st)
	if err != nil {
		return nil, err
	}
	if msg.Player == "" {
		return nil, fmt.Errorf("missing player")
	}
	if msg.GrossWager == 0 {
		return nil, fmt.Errorf("grossWager must be > 0")
	}
	if len(msg.Commitment) != commitment.Size {
		return nil, fmt.Errorf("commitment must be %d bytes, got %d", commitment.Size, len(msg.Commitment))
	}
	if !c.IsOpen {
		return nil, ErrContestNotActive
	}
	if now >= c.EpochStart+c.EpochLength {
		return nil, ErrContestEnded
	}
	if _, exists := st.Entries[msg.Player]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, msg.Player)
	}

	fee := houseFee(msg.GrossWager, c.HouseFeePercent)
	net := msg.GrossWager - fee
	if c.PoolTotal > ^uint64(0)-net {
		return nil, fmt.Errorf("pool overflow: have=%d add=%d", c.PoolTotal, net)
	}

	// The transfer is the only fallible effect; everything after it is
	// plain assignment, so the operation is all-or-nothing.
	if err := st.Transfer(msg.Player, vaultAccount, msg.GrossWager); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	c.PoolTotal += net
	st.Entries[msg.Player] = &state.Entry{
		Player:     msg.Player,
		GrossWager: msg.GrossWager,
		NetWager:   net,
		Commitment: append([]byte(nil), msg.Commitment...),
		Revealed:   false,
		Score:      0,
		EntryTime:  now,
	}

	return okEvent("Entered", map[string]string{
		"player":     msg.Player,
		"grossWager": fmt.Sprintf("%d", msg.GrossWager),
		"netWager":   fmt.Sprintf("%d", net),
		"time":       fmt.Sprintf("%d", now),
	}), nil
}

func contestReveal(st *state.State, msg codec.ContestRevealTx, now int64) (*abci.ExecTxResult, error) {
	if _, err := requireContest(st); err != nil {
		return nil, err
	}
	if msg.Player == "" {
		return nil, fmt.Errorf("missing player")
	}
	if len(msg.Salt) != commitment.Size {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", commitment.Size, len(msg.Salt))
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

	var digest, salt [commitment.Size]byte
	copy(digest[:], e.Commitment)
	copy(salt[:], msg.Salt)
	if !commitment.Verify(digest, e.Player, msg.Score, salt) {
		// Entry stays unrevealed; the player may retry with the
		// correct salt and score.
		return nil, ErrInvalidScoreHash
	}

	// Board before entry flags, so a revealed entry can never exist
	// without its ranking having been considered.
	ranked := st.Board.Offer(e.Player, msg.Score, e.NetWager, now)
	e.Revealed = true
	e.Score = msg.Score
	e.RevealTime = now

	return okEvent("Revealed", map[string]string{
		"player": msg.Player,
		"score":  fmt.Sprintf("%d", msg.Score),
		"ranked": fmt.Sprintf("%t", ranked),
		"time":   fmt.Sprintf("%d", now),
	}), nil
}

func contestClose(st *state.State, msg codec.ContestCloseTx, now int64) (*abci.ExecTxResult, error) {
	c, err := requireContest(st)
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(c, msg.Caller); err != nil {
		return nil, err
	}
	if now < c.EpochStart+c.EpochLength {
		return nil, fmt.Errorf("%w: %d seconds remain", ErrContestNotEnded, c.EpochStart+c.EpochLength-now)
	}

	// Freeze the pool and board for this epoch. Distribution reads the
	// snapshot, never the live pool, which resets below.
	snap := &state.SettledEpoch{
		EpochID:   c.EpochID,
		PoolTotal: c.PoolTotal,
		ClosedAt:  now,
		Board:     st.Board,
	}
	st.Settled[c.EpochID] = snap

	res := okEvent("Closed", map[string]string{
		"epochId":   fmt.Sprintf("%d", snap.EpochID),
		"poolTotal": fmt.Sprintf("%d", snap.PoolTotal),
		"time":      fmt.Sprintf("%d", now),
	})
	for i := range snap.Board.Slots {
		slot := &snap.Board.Slots[i]
		if slot.Player == "" {
			continue
		}
		rank := uint8(i + 1)
		res.Events = append(res.Events, abci.Event{
			Type: "PayoutDue",
			Attributes: []abci.EventAttribute{
				{Key: "epochId", Value: fmt.Sprintf("%d", snap.EpochID), Index: true},
				{Key: "player", Value: slot.Player, Index: true},
				{Key: "rank", Value: fmt.Sprintf("%d", rank), Index: true},
				{Key: "amount", Value: fmt.Sprintf("%d", prize.Amount(rank, snap.PoolTotal)), Index: false},
			},
		})
	}

	// A new epoch begins immediately. Entries retire with the closed
	// epoch and the live board starts empty.
	st.Entries = map[string]*state.Entry{}
	st.Board.Reset()
	c.PoolTotal = 0
	c.EpochStart = now
	c.EpochID++
	c.IsOpen = true

	return res, nil
}

func contestDistributePrize(st *state.State, msg codec.ContestDistributePrizeTx) (*abci.ExecTxResult, error) {
	c, err := requireContest(st)
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(c, msg.Caller); err != nil {
		return nil, err
	}
	if msg.Rank < 1 || msg.Rank > state.BoardSize {
		return nil, fmt.Errorf("%w: rank=%d", ErrInvalidRank, msg.Rank)
	}

	epochID := msg.EpochID
	if epochID == 0 {
		// Default to the most recently closed epoch.
		epochID = c.EpochID - 1
	}
	snap := st.Settled[epochID]
	if snap == nil {
		return nil, fmt.Errorf("epoch %d is not settled", epochID)
	}
	slot := &snap.Board.Slots[msg.Rank-1]
	if slot.Player == "" {
		return nil, fmt.Errorf("%w: rank %d is unoccupied", ErrPlayerNotFound, msg.Rank)
	}
	if msg.Winner != slot.Player {
		return nil, fmt.Errorf("%w: rank %d belongs to %q", ErrUnauthorizedPlayer, msg.Rank, slot.Player)
	}

	amount := prize.Amount(msg.Rank, snap.PoolTotal)
	if amount > 0 {
		if err := st.Transfer(vaultAccount, slot.Player, amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	return okEvent("PrizeDistributed", map[string]string{
		"epochId": fmt.Sprintf("%d", epochID),
		"player":  slot.Player,
		"rank":    fmt.Sprintf("%d", msg.Rank),
		"amount":  fmt.Sprintf("%d", amount),
	}), nil
}
