package app

import (
	"encoding/json"
	"strconv"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func txBytes(t *testing.T, typ string, value any) []byte {
	t.Helper()
	return mustMarshal(t, map[string]any{
		"type":  typ,
		"value": value,
	})
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func parseU64(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		t.Fatalf("parse uint64 %q: %v", s, err)
	}
	return n
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.CloseStore() })
	return a
}

func mustOk(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	if res.Code != 0 {
		t.Fatalf("expected ok, got code=%d log=%q", res.Code, res.Log)
	}
	return res
}

func mustFail(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	if res.Code == 0 {
		t.Fatalf("expected failure, got ok")
	}
	if res.Log == "" {
		t.Fatalf("expected error log")
	}
	return res
}

func mintTokens(t *testing.T, a *App, now int64, to string, amount uint64) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, "bank/mint", map[string]any{"to": to, "amount": amount}), now))
}

// initContest sets up a contest owned by "authority" starting at now.
func initContest(t *testing.T, a *App, now int64, feePercent uint8, epochLengthSecs int64) {
	t.Helper()
	mustOk(t, a.deliverTx(txBytes(t, "contest/initialize", map[string]any{
		"authority":       "authority",
		"houseFeePercent": feePercent,
		"epochLengthSecs": epochLengthSecs,
	}), now))
}

func TestBankMintAndSend(t *testing.T) {
	const now = int64(1000)
	a := newTestApp(t)

	mintTokens(t, a, now, "alice", 500)
	mustOk(t, a.deliverTx(txBytes(t, "bank/send", map[string]any{"from": "alice", "to": "bob", "amount": 200}), now))

	if bal := a.st.Balance("alice"); bal != 300 {
		t.Fatalf("alice balance: want 300, got %d", bal)
	}
	if bal := a.st.Balance("bob"); bal != 200 {
		t.Fatalf("bob balance: want 200, got %d", bal)
	}

	res := mustFail(t, a.deliverTx(txBytes(t, "bank/send", map[string]any{"from": "bob", "to": "alice", "amount": 999}), now))
	if res.Log == "" {
		t.Fatalf("expected insufficient funds log")
	}
	if bal := a.st.Balance("bob"); bal != 200 {
		t.Fatalf("failed send must not move funds, got %d", bal)
	}
}

func TestInitialize_OpensFirstEpoch(t *testing.T) {
	const now = int64(5000)
	a := newTestApp(t)
	initContest(t, a, now, 5, 3600)

	c := a.st.Contest
	if c == nil {
		t.Fatalf("missing contest state")
	}
	if c.Authority != "authority" || c.HouseFeePercent != 5 || c.EpochLength != 3600 {
		t.Fatalf("unexpected contest config: %+v", c)
	}
	if c.EpochStart != now || c.EpochID != 1 || c.PoolTotal != 0 || !c.IsOpen {
		t.Fatalf("unexpected epoch state: %+v", c)
	}
}

func TestInitialize_RejectsFeeOver100(t *testing.T) {
	const now = int64(1)
	a := newTestApp(t)

	mustFail(t, a.deliverTx(txBytes(t, "contest/initialize", map[string]any{
		"authority":       "authority",
		"houseFeePercent": 101,
		"epochLengthSecs": 3600,
	}), now))
	if a.st.Contest != nil {
		t.Fatalf("failed initialize must not create contest state")
	}
}

func TestInitialize_RejectsSecondInitialize(t *testing.T) {
	const now = int64(1)
	a := newTestApp(t)
	initContest(t, a, now, 5, 3600)

	mustFail(t, a.deliverTx(txBytes(t, "contest/initialize", map[string]any{
		"authority":       "mallory",
		"houseFeePercent": 0,
		"epochLengthSecs": 60,
	}), now))
	if a.st.Contest.Authority != "authority" {
		t.Fatalf("re-initialize must not replace authority")
	}
}

func TestUnknownTxTypeFails(t *testing.T) {
	a := newTestApp(t)
	mustFail(t, a.deliverTx(txBytes(t, "contest/tilt", map[string]any{}), 1))
}
