package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the transaction container.
//
// CometBFT transactions are opaque bytes; we use JSON-encoded txs for
// the devnet protocol. Actor identity is authenticated by the hosting
// platform before a tx reaches the app, so payloads carry the actor
// field directly.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Contest ----

type ContestInitializeTx struct {
	Authority       string `json:"authority"`
	HouseFeePercent uint8  `json:"houseFeePercent"`
	EpochLengthSecs int64  `json:"epochLengthSecs"`
}

type ContestEnterTx struct {
	Player     string `json:"player"`
	GrossWager uint64 `json:"grossWager"`
	Commitment []byte `json:"commitment"` // base64 (32 bytes)
}

type ContestRevealTx struct {
	Player string `json:"player"`
	Score  uint64 `json:"score"`
	Salt   []byte `json:"salt"` // base64 (32 bytes)
}

type ContestCloseTx struct {
	Caller string `json:"caller"`
}

type ContestDistributePrizeTx struct {
	Caller string `json:"caller"`
	// EpochID selects the settled epoch to pay from; 0 means the most
	// recently closed epoch.
	EpochID uint64 `json:"epochId,omitempty"`
	Rank    uint8  `json:"rank"`
	Winner  string `json:"winner"`
}

type ContestBuyInsuranceTx struct {
	Player string `json:"player"`
}

type ContestMintPassTx struct {
	Player string `json:"player"`
}
