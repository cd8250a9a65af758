package state

import (
	"encoding/binary"
	"fmt"
)

// Binary record layout for persisted state: fixed-width scalars in
// little-endian, identities and digests length-prefixed with a u16.
// Decode must round-trip every field losslessly.

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func appendInt64(b []byte, v int64) []byte {
	return appendUint64(b, uint64(v))
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

func appendBytes(b []byte, p []byte) []byte {
	if len(p) > 0xffff {
		p = p[:0xffff]
	}
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(p)))
	b = append(b, l[:]...)
	return append(b, p...)
}

func appendString(b []byte, s string) []byte {
	return appendBytes(b, []byte(s))
}

// reader consumes a record, latching the first error.
type reader struct {
	b   []byte
	err error
}

func (r *reader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("truncated record: %s", what)
	}
}

func (r *reader) uint64(what string) uint64 {
	if r.err != nil {
		return 0
	}
	if len(r.b) < 8 {
		r.fail(what)
		return 0
	}
	v := binary.LittleEndian.Uint64(r.b[:8])
	r.b = r.b[8:]
	return v
}

func (r *reader) int64(what string) int64 {
	return int64(r.uint64(what))
}

func (r *reader) bool(what string) bool {
	if r.err != nil {
		return false
	}
	if len(r.b) < 1 {
		r.fail(what)
		return false
	}
	v := r.b[0]
	r.b = r.b[1:]
	return v != 0
}

func (r *reader) bytes(what string) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b) < 2 {
		r.fail(what)
		return nil
	}
	n := int(binary.LittleEndian.Uint16(r.b[:2]))
	r.b = r.b[2:]
	if len(r.b) < n {
		r.fail(what)
		return nil
	}
	v := append([]byte(nil), r.b[:n]...)
	r.b = r.b[n:]
	return v
}

func (r *reader) string(what string) string {
	return string(r.bytes(what))
}

func (r *reader) done(what string) error {
	if r.err != nil {
		return r.err
	}
	if len(r.b) != 0 {
		return fmt.Errorf("trailing bytes in %s record: %d", what, len(r.b))
	}
	return nil
}

// ---- Contest ----

func EncodeContest(c *Contest) []byte {
	b := make([]byte, 0, 64)
	b = appendString(b, c.Authority)
	b = append(b, c.HouseFeePercent)
	b = appendInt64(b, c.EpochLength)
	b = appendInt64(b, c.EpochStart)
	b = appendUint64(b, c.EpochID)
	b = appendUint64(b, c.PoolTotal)
	b = appendBool(b, c.IsOpen)
	return b
}

func DecodeContest(b []byte) (*Contest, error) {
	r := &reader{b: b}
	c := &Contest{}
	c.Authority = r.string("contest.authority")
	if r.err == nil {
		if len(r.b) < 1 {
			r.fail("contest.houseFeePercent")
		} else {
			c.HouseFeePercent = r.b[0]
			r.b = r.b[1:]
		}
	}
	c.EpochLength = r.int64("contest.epochLength")
	c.EpochStart = r.int64("contest.epochStart")
	c.EpochID = r.uint64("contest.epochId")
	c.PoolTotal = r.uint64("contest.poolTotal")
	c.IsOpen = r.bool("contest.isOpen")
	if err := r.done("contest"); err != nil {
		return nil, err
	}
	return c, nil
}

// ---- Entry ----

func EncodeEntry(e *Entry) []byte {
	b := make([]byte, 0, 128)
	b = appendString(b, e.Player)
	b = appendUint64(b, e.GrossWager)
	b = appendUint64(b, e.NetWager)
	b = appendBytes(b, e.Commitment)
	b = appendBool(b, e.Revealed)
	b = appendUint64(b, e.Score)
	b = appendInt64(b, e.EntryTime)
	b = appendInt64(b, e.RevealTime)
	b = appendBool(b, e.InsurancePurchased)
	return b
}

func DecodeEntry(b []byte) (*Entry, error) {
	r := &reader{b: b}
	e := &Entry{}
	e.Player = r.string("entry.player")
	e.GrossWager = r.uint64("entry.grossWager")
	e.NetWager = r.uint64("entry.netWager")
	e.Commitment = r.bytes("entry.commitment")
	e.Revealed = r.bool("entry.revealed")
	e.Score = r.uint64("entry.score")
	e.EntryTime = r.int64("entry.entryTime")
	e.RevealTime = r.int64("entry.revealTime")
	e.InsurancePurchased = r.bool("entry.insurancePurchased")
	if err := r.done("entry"); err != nil {
		return nil, err
	}
	return e, nil
}

// ---- Leaderboard ----

func EncodeLeaderboard(l *Leaderboard) []byte {
	b := make([]byte, 0, BoardSize*56)
	for i := range l.Slots {
		s := &l.Slots[i]
		b = appendString(b, s.Player)
		b = appendUint64(b, s.Score)
		b = appendUint64(b, s.Wager)
		b = appendInt64(b, s.Timestamp)
	}
	return b
}

func DecodeLeaderboard(b []byte) (*Leaderboard, error) {
	r := &reader{b: b}
	l := &Leaderboard{}
	for i := range l.Slots {
		l.Slots[i].Player = r.string("board.player")
		l.Slots[i].Score = r.uint64("board.score")
		l.Slots[i].Wager = r.uint64("board.wager")
		l.Slots[i].Timestamp = r.int64("board.timestamp")
	}
	if err := r.done("board"); err != nil {
		return nil, err
	}
	return l, nil
}

// ---- SettledEpoch ----

func EncodeSettledEpoch(se *SettledEpoch) []byte {
	b := make([]byte, 0, 200)
	b = appendUint64(b, se.EpochID)
	b = appendUint64(b, se.PoolTotal)
	b = appendInt64(b, se.ClosedAt)
	b = append(b, EncodeLeaderboard(&se.Board)...)
	return b
}

func DecodeSettledEpoch(b []byte) (*SettledEpoch, error) {
	r := &reader{b: b}
	se := &SettledEpoch{}
	se.EpochID = r.uint64("settled.epochId")
	se.PoolTotal = r.uint64("settled.poolTotal")
	se.ClosedAt = r.int64("settled.closedAt")
	for i := range se.Board.Slots {
		se.Board.Slots[i].Player = r.string("settled.board.player")
		se.Board.Slots[i].Score = r.uint64("settled.board.score")
		se.Board.Slots[i].Wager = r.uint64("settled.board.wager")
		se.Board.Slots[i].Timestamp = r.int64("settled.board.timestamp")
	}
	if err := r.done("settled"); err != nil {
		return nil, err
	}
	return se, nil
}

// ---- Pass ----

func EncodePass(p *Pass) []byte {
	b := make([]byte, 0, 32)
	b = appendString(b, p.Owner)
	b = appendInt64(b, p.MintTime)
	b = appendBool(b, p.IsActive)
	return b
}

func DecodePass(b []byte) (*Pass, error) {
	r := &reader{b: b}
	p := &Pass{}
	p.Owner = r.string("pass.owner")
	p.MintTime = r.int64("pass.mintTime")
	p.IsActive = r.bool("pass.isActive")
	if err := r.done("pass"); err != nil {
		return nil, err
	}
	return p, nil
}
