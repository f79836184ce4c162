package statistics

import (
	"testing"

	"LotteryHub/internal/ledger"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca201")
)

func seeded(t *testing.T) *Aggregator {
	t.Helper()
	store := ledger.New(model.Settings{})
	store.Begin()
	store.AddStat(model.BoardWinners, alice, decimal.NewFromInt(100), 1)
	store.AddStat(model.BoardWinners, bob, decimal.NewFromInt(300), 1)
	store.AddStat(model.BoardWinners, carol, decimal.NewFromInt(100), 2)
	store.AddStat(model.BoardCreators, alice, decimal.NewFromInt(900), 1)
	store.AddStat(model.BoardCreators, bob, decimal.NewFromInt(10), 3)
	store.Commit()
	return NewAggregator(store)
}

func TestTop(t *testing.T) {
	agg := seeded(t)
	tests := []struct {
		name  string
		board model.Board
		n     int
		want  []common.Address
	}{
		{"winners by value then count", model.BoardWinners, 0, []common.Address{bob, carol, alice}},
		{"limited", model.BoardWinners, 2, []common.Address{bob, carol}},
		{"creators by draws", model.BoardCreators, 0, []common.Address{bob, alice}},
		{"empty board", model.BoardExecutors, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := agg.Top(tt.board, tt.n)
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.want))
			}
			for i, r := range rows {
				if r.Account != tt.want[i] {
					t.Errorf("row %d = %s, want %s", i, r.Account.Hex(), tt.want[i].Hex())
				}
				if r.Rank != i+1 {
					t.Errorf("row %d rank = %d", i, r.Rank)
				}
			}
		})
	}
}

func TestTop_AccumulatesAcrossCalls(t *testing.T) {
	store := ledger.New(model.Settings{})
	store.Begin()
	store.AddStat(model.BoardBuyers, alice, decimal.NewFromInt(10), 1)
	store.AddStat(model.BoardBuyers, alice, decimal.NewFromInt(15), 2)
	store.Commit()

	rows := NewAggregator(store).Top(model.BoardBuyers, 1)
	if len(rows) != 1 || rows[0].Value.String() != "25" || rows[0].Count != 3 {
		t.Errorf("rows = %+v, want alice with 25 over 3 tickets", rows)
	}
}

func TestValid(t *testing.T) {
	for _, b := range Boards {
		if !Valid(b) {
			t.Errorf("Valid(%s) = false", b)
		}
	}
	if Valid("losers") {
		t.Error("Valid(losers) = true")
	}
}
