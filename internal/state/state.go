package state

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// State is the full application state: the token ledger plus the
// contest singleton and its per-epoch records. It is owned by the app
// and mutated only inside the serial tx loop.
type State struct {
	Height int64 `json:"height"`

	// Accounts is the token ledger. The contest vault account holds
	// pool custody.
	Accounts map[string]uint64 `json:"accounts"`

	// Contest is nil until contest/initialize runs.
	Contest *Contest `json:"contest,omitempty"`

	// Entries holds one entry per player for the open epoch. Cleared
	// when the epoch closes.
	Entries map[string]*Entry `json:"entries"`

	// Board is the live top-3 for the open epoch. Cleared on close;
	// the closing snapshot lives in Settled.
	Board Leaderboard `json:"board"`

	// Settled maps epoch id to the frozen pool/board snapshot taken at
	// close time. Prize distribution reads these, never the live pool.
	Settled map[uint64]*SettledEpoch `json:"settled"`

	// Passes maps owner to their minted pass.
	Passes map[string]*Pass `json:"passes"`
}

// Contest is the epoch lifecycle singleton. Authority, fee and epoch
// length are fixed at initialize; the rest rolls over per epoch.
type Contest struct {
	Authority       string `json:"authority"`
	HouseFeePercent uint8  `json:"houseFeePercent"`
	EpochLength     int64  `json:"epochLengthSecs"`
	EpochStart      int64  `json:"epochStart"`
	EpochID         uint64 `json:"epochId"`
	PoolTotal       uint64 `json:"poolTotal"`
	IsOpen          bool   `json:"isOpen"`
}

// Entry is a player's run in the open epoch. Created at enter, mutated
// exactly once at a successful reveal, retired when the epoch closes.
type Entry struct {
	Player             string `json:"player"`
	GrossWager         uint64 `json:"grossWager"`
	NetWager           uint64 `json:"netWager"`
	Commitment         []byte `json:"commitment"` // 32-byte digest (base64 in JSON)
	Revealed           bool   `json:"revealed"`
	Score              uint64 `json:"score"`
	EntryTime          int64  `json:"entryTime"`
	RevealTime         int64  `json:"revealTime,omitempty"`
	InsurancePurchased bool   `json:"insurancePurchased,omitempty"`
}

// SettledEpoch freezes everything distribution needs at close time.
type SettledEpoch struct {
	EpochID   uint64      `json:"epochId"`
	PoolTotal uint64      `json:"poolTotal"`
	ClosedAt  int64       `json:"closedAt"`
	Board     Leaderboard `json:"board"`
}

// Pass is a minted collectible pass. It has no settlement interaction.
type Pass struct {
	Owner    string `json:"owner"`
	MintTime int64  `json:"mintTime"`
	IsActive bool   `json:"isActive"`
}

func NewState() *State {
	return &State{
		Accounts: map[string]uint64{},
		Entries:  map[string]*Entry{},
		Settled:  map[uint64]*SettledEpoch{},
		Passes:   map[string]*Pass{},
	}
}

// AppHash hashes the binary encoding of the state with all map keys in
// sorted order, so the hash is independent of map iteration order.
func (s *State) AppHash() []byte {
	b := make([]byte, 0, 256)
	b = appendInt64(b, s.Height)

	addrs := make([]string, 0, len(s.Accounts))
	for a := range s.Accounts {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	b = appendUint64(b, uint64(len(addrs)))
	for _, a := range addrs {
		b = appendString(b, a)
		b = appendUint64(b, s.Accounts[a])
	}

	if s.Contest != nil {
		b = appendBool(b, true)
		b = append(b, EncodeContest(s.Contest)...)
	} else {
		b = appendBool(b, false)
	}

	players := make([]string, 0, len(s.Entries))
	for p := range s.Entries {
		players = append(players, p)
	}
	sort.Strings(players)
	b = appendUint64(b, uint64(len(players)))
	for _, p := range players {
		b = append(b, EncodeEntry(s.Entries[p])...)
	}

	b = append(b, EncodeLeaderboard(&s.Board)...)

	epochs := make([]uint64, 0, len(s.Settled))
	for id := range s.Settled {
		epochs = append(epochs, id)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })
	b = appendUint64(b, uint64(len(epochs)))
	for _, id := range epochs {
		b = append(b, EncodeSettledEpoch(s.Settled[id])...)
	}

	owners := make([]string, 0, len(s.Passes))
	for o := range s.Passes {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	b = appendUint64(b, uint64(len(owners)))
	for _, o := range owners {
		b = append(b, EncodePass(s.Passes[o])...)
	}

	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Ledger ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return fmt.Errorf("insufficient funds: have=%d need=%d", bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// Transfer moves amount between accounts, all or nothing. A credit
// overflow undoes the debit so funds cannot strand mid-transfer.
func (s *State) Transfer(from, to string, amount uint64) error {
	if err := s.Debit(from, amount); err != nil {
		return err
	}
	if err := s.Credit(to, amount); err != nil {
		s.Accounts[from] += amount
		return err
	}
	return nil
}
