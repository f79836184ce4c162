package notifier

import (
	"strings"
	"testing"
	"time"

	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	bob   = common.HexToAddress("0x0000000000000000000000000000000000001234")
	punks = common.HexToAddress("0x0000000000000000000000000000000000000909")
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{decimal.New(1, 18), "1.0000"},
		{decimal.New(15, 15), "0.0150"},
		{decimal.Zero, "0.0000"},
		{decimal.NewFromInt(1796), "0.0000"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnnouncements(t *testing.T) {
	events := []model.Event{
		{Type: model.EventTicketsPurchased, DrawID: 1},
		{Type: model.EventWinnerCredited, DrawID: 1, Account: bob, Amount: decimal.New(2, 18), Quantity: 1},
		{Type: model.EventWinnerCredited, DrawID: 1, Account: bob, Asset: punks, Quantity: 42, Note: "nft"},
		{Type: model.EventWinnerCredited, DrawID: 9, Account: bob, Amount: decimal.New(7, 18), Quantity: 1},
		{Type: model.EventDrawExecuted, DrawID: 1, Amount: decimal.New(2, 18), Note: "USER_NFT"},
		{Type: model.EventDrawCancelled, DrawID: 2, Quantity: 3, Note: "unviable"},
	}
	msgs := Announcements(events)
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}

	exec := msgs[0]
	for _, want := range []string{"Draw #1 executed", "USER_NFT", "Prize pool: 2.0000", "#1 0x0000…1234: 2.0000", "NFT 0x0000…0909#42"} {
		if !strings.Contains(exec, want) {
			t.Errorf("execution message missing %q:\n%s", want, exec)
		}
	}
	if strings.Contains(exec, "7.0000") {
		t.Errorf("execution message includes another draw's winner:\n%s", exec)
	}
	if !strings.Contains(msgs[1], "Draw #2 cancelled") || !strings.Contains(msgs[1], "3 tickets sold") {
		t.Errorf("cancel message = %q", msgs[1])
	}
}

func TestFormatActiveDraws(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	if got := FormatActiveDraws(nil, now); got != "No active draws." {
		t.Errorf("empty = %q", got)
	}
	got := FormatActiveDraws([]*model.Draw{
		{ID: 3, Kind: model.KindPlatformWeekly, TicketsSold: 10, MaxTickets: 100, TicketPrice: decimal.New(1, 16), EndTime: now.Add(90 * time.Minute)},
		{ID: 4, Kind: model.KindUserNative, MaxTickets: 5, TicketPrice: decimal.New(1, 18), EndTime: now.Add(-time.Minute)},
	}, now)
	for _, want := range []string{"#3 PLATFORM_WEEKLY: 10/100 sold, price 0.0100, 1h30m0s", "#4 USER_NATIVE: 0/5 sold, price 1.0000, ended"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatLeaderboardAndTreasury(t *testing.T) {
	if got := FormatLeaderboard(model.BoardBuyers, nil); !strings.Contains(got, "Nobody yet.") {
		t.Errorf("empty board = %q", got)
	}
	got := FormatLeaderboard(model.BoardWinners, []model.Standing{{Account: bob, Value: decimal.New(3, 18), Count: 2, Rank: 1}})
	if !strings.Contains(got, "1. 0x0000…1234 3.0000 (2)") {
		t.Errorf("board = %q", got)
	}

	v := model.TreasuryView{
		Jackpot: decimal.New(5, 17),
		PlatformFees: map[common.Address]decimal.Decimal{
			model.NativeAsset: decimal.New(25, 15),
			punks:             decimal.NewFromInt(9),
		},
	}
	got = FormatTreasury(v)
	for _, want := range []string{"Jackpot: 0.5000", "Platform fees: 0.0250", "(+1 token accounts)"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}
