package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/echa/log"

	"gorbadome/chain/internal/codec"
	"gorbadome/chain/internal/state"
)

const (
	AppVersion uint64 = 1
)

// App is the GorbaDome contest settlement engine as a CometBFT ABCI
// application. The host serializes conflicting access; every tx applies
// as a single atomic transition under the mutex.
type App struct {
	*abci.BaseApplication

	mu       sync.Mutex
	store    *state.Store
	st       *state.State
	lastHash []byte
}

func New(home string) (*App, error) {
	store, err := state.OpenStore(filepath.Join(home, "app"))
	if err != nil {
		return nil, err
	}
	st, err := store.Load()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Infof("gorbadome state loaded at height %d", st.Height)
	return &App{
		BaseApplication: abci.NewBaseApplication(),
		store:           store,
		st:              st,
		lastHash:        st.AppHash(),
	}, nil
}

func (a *App) CloseStore() error {
	return a.store.Close()
}

func (a *App) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "gorbadome",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *App) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	// Structural validation only; full checks run at delivery against
	// committed state.
	if _, err := codec.DecodeTxEnvelope(req.Tx); err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *App) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	return &abci.InitChainResponse{}, nil
}

func (a *App) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	now := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		txResults = append(txResults, a.deliverTx(txBytes, now))
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *App) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Persist after each block. Returning the error makes the node
	// halt loudly rather than drift from its own store.
	if err := a.store.Save(a.st); err != nil {
		log.Errorf("commit: persist state at height %d: %v", a.st.Height, err)
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *App) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Paths:
	// - /contest
	// - /leaderboard
	// - /entry/<player>
	// - /account/<addr>
	// - /epoch/<id>
	// - /pass/<player>
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/contest":
		if a.st.Contest == nil {
			return &abci.QueryResponse{Code: 1, Log: "contest not initialized", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(a.st.Contest)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case path == "/leaderboard":
		b, _ := json.Marshal(a.st.Board)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/entry/"):
		player := strings.TrimPrefix(path, "/entry/")
		e, ok := a.st.Entries[player]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "entry not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(e)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		b, _ := json.Marshal(map[string]any{"addr": addr, "balance": a.st.Balance(addr)})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/epoch/"):
		raw := strings.TrimPrefix(path, "/epoch/")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid epoch id", Height: a.st.Height}, nil
		}
		se, ok := a.st.Settled[id]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "epoch not settled", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(se)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/pass/"):
		owner := strings.TrimPrefix(path, "/pass/")
		p, ok := a.st.Passes[owner]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "pass not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(p)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

// deliverTx routes one tx. now is the block timestamp in unix seconds,
// the contest's only clock.
func (a *App) deliverTx(txBytes []byte, now int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	res, err := a.route(env, now)
	if err != nil {
		// Validation failures are reported to the caller, never
		// swallowed; state is untouched on this path.
		return &abci.ExecTxResult{Code: 1, Log: err.Error()}
	}
	return res
}

func (a *App) route(env codec.TxEnvelope, now int64) (*abci.ExecTxResult, error) {
	switch env.Type {
	case "bank/mint":
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad bank/mint value")
		}
		if msg.To == "" || msg.Amount == 0 {
			return nil, fmt.Errorf("missing to/amount")
		}
		if err := a.st.Credit(msg.To, msg.Amount); err != nil {
			return nil, err
		}
		return okEvent("BankMinted", map[string]string{
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		}), nil

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad bank/send value")
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return nil, fmt.Errorf("missing from/to/amount")
		}
		if err := a.st.Transfer(msg.From, msg.To, msg.Amount); err != nil {
			return nil, err
		}
		return okEvent("BankSent", map[string]string{
			"from":   msg.From,
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		}), nil

	case "contest/initialize":
		var msg codec.ContestInitializeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad contest/initialize value")
		}
		return contestInitialize(a.st, msg, now)

	case "contest/enter":
		var msg codec.ContestEnterTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad contest/enter value")
		}
		return contestEnter(a.st, msg, now)

	case "contest/reveal":
		var msg codec.ContestRevealTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad contest/reveal value")
		}
		return contestReveal(a.st, msg, now)

	case "contest/close":
		var msg codec.ContestCloseTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad contest/close value")
		}
		return contestClose(a.st, msg, now)

	case "contest/distribute_prize":
		var msg codec.ContestDistributePrizeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad contest/distribute_prize value")
		}
		return contestDistributePrize(a.st, msg)

	case "contest/buy_insurance":
		var msg codec.ContestBuyInsuranceTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad contest/buy_insurance value")
		}
		return contestBuyInsurance(a.st, msg)

	case "contest/mint_pass":
		var msg codec.ContestMintPassTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, fmt.Errorf("bad contest/mint_pass value")
		}
		return contestMintPass(a.st, msg, now)

	default:
		return nil, fmt.Errorf("unknown tx type: %s", env.Type)
	}
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}
