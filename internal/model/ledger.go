package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Env is what the ledger knows about the caller of an operation.
type Env struct {
	Caller common.Address
	Value  decimal.Decimal // native value attached to the call
	Now    time.Time
}

// Purchase records one ticket purchase (or one free monthly entry, with zero cost).
type Purchase struct {
	DrawID    uint64          `json:"draw_id"`
	Buyer     common.Address  `json:"buyer"`
	Quantity  uint64          `json:"quantity"`
	Cost      decimal.Decimal `json:"cost"`
	Timestamp time.Time       `json:"timestamp"`
}

// Participant is an aggregated entry in a draw's weighted participant index.
type Participant struct {
	Account common.Address  `json:"account"`
	Tickets uint64          `json:"tickets"`
	Spent   decimal.Decimal `json:"spent"`
}

// BalanceKind separates the claimable buckets of a pending balance.
type BalanceKind uint8

const (
	BalancePrize BalanceKind = iota + 1
	BalanceExecutorReward
	BalanceCreatorRevenue
)

func (k BalanceKind) String() string {
	switch k {
	case BalancePrize:
		return "PRIZE"
	case BalanceExecutorReward:
		return "EXECUTOR_REWARD"
	case BalanceCreatorRevenue:
		return "CREATOR_REVENUE"
	}
	return "UNKNOWN"
}

// PendingBalance is one unclaimed entitlement.
type PendingBalance struct {
	Account common.Address  `json:"account"`
	Asset   common.Address  `json:"asset"`
	Kind    BalanceKind     `json:"kind"`
	Amount  decimal.Decimal `json:"amount"`
}

// Credits are monthly draw entries earned through activity.
type Credits struct {
	FromWeeklyPurchase uint64 `json:"from_weekly_purchase"`
	FromDrawCreation   uint64 `json:"from_draw_creation"`
	FromParticipation  uint64 `json:"from_participation"`
}

func (c Credits) Total() uint64 {
	return c.FromWeeklyPurchase + c.FromDrawCreation + c.FromParticipation
}

func (c Credits) Add(o Credits) Credits {
	return Credits{
		FromWeeklyPurchase: c.FromWeeklyPurchase + o.FromWeeklyPurchase,
		FromDrawCreation:   c.FromDrawCreation + o.FromDrawCreation,
		FromParticipation:  c.FromParticipation + o.FromParticipation,
	}
}

// FeeSchedule holds the purchase-time splits, in basis points of the gross.
type FeeSchedule struct {
	PlatformBps uint32          `json:"platform_bps" yaml:"platform_bps"`
	ExecutorBps uint32          `json:"executor_bps" yaml:"executor_bps"`
	ExecutorCap decimal.Decimal `json:"executor_cap" yaml:"-"` // per draw; zero means uncapped
	CreatorBps  uint32          `json:"creator_bps" yaml:"creator_bps"`
	JackpotBps  uint32          `json:"jackpot_bps" yaml:"jackpot_bps"`
}

// CreditPolicy says how many monthly credits each activity mints.
type CreditPolicy struct {
	PerWeeklyTicket uint64 `json:"per_weekly_ticket" yaml:"per_weekly_ticket"`
	PerDrawCreation uint64 `json:"per_draw_creation" yaml:"per_draw_creation"`
	PerUserTicket   uint64 `json:"per_user_ticket" yaml:"per_user_ticket"`
}

// Settings is the owner-controlled configuration kept in the ledger.
type Settings struct {
	Fees               FeeSchedule  `json:"fees"`
	Credits            CreditPolicy `json:"credits"`
	Paused             bool         `json:"paused"`
	RandomnessFallback bool         `json:"randomness_fallback"`
}

// ScheduleState points at the platform draws currently open.
type ScheduleState struct {
	WeeklyID  uint64 `json:"weekly_id"`
	MonthlyID uint64 `json:"monthly_id"`
	Rounds    uint64 `json:"rounds"`
}

// Timing is the time-derived view of a draw.
type Timing struct {
	DrawID        uint64        `json:"draw_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	GraceDeadline time.Time     `json:"grace_deadline"`
	Remaining     time.Duration `json:"remaining"`
	Status        DrawStatus    `json:"status"`
	Executable    bool          `json:"executable"`
	Cancellable   bool          `json:"cancellable"`
}

// ClaimSummary lists everything an account can claim.
type ClaimSummary struct {
	Account    common.Address   `json:"account"`
	Balances   []PendingBalance `json:"balances"`
	NFTs       []NFTRef         `json:"nfts"`
	Refundable []uint64         `json:"refundable"`
}

// Claim is the result of a successful claim.
type Claim struct {
	Asset  common.Address  `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	NFTs   []NFTRef        `json:"nfts,omitempty"`
}

// Board names a leaderboard.
type Board string

const (
	BoardWinners   Board = "winners"
	BoardBuyers    Board = "buyers"
	BoardCreators  Board = "creators"
	BoardExecutors Board = "executors"
)

// Standing is one row of a leaderboard.
type Standing struct {
	Account common.Address  `json:"account"`
	Value   decimal.Decimal `json:"value"`
	Count   uint64          `json:"count"`
	Rank    int             `json:"rank"`
}

// TreasuryView is the state of the platform accumulators.
type TreasuryView struct {
	PlatformFees map[common.Address]decimal.Decimal `json:"platform_fees"`
	Jackpot      decimal.Decimal                    `json:"jackpot"`
}
