package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NativeAsset is the asset address used for the ledger's native currency.
var NativeAsset = common.Address{}

// DrawKind tells who created a draw and what it is priced/backed in.
type DrawKind uint8

const (
	KindUserNative DrawKind = iota + 1
	KindUserToken
	KindUserNFT
	KindPlatformWeekly
	KindPlatformMonthly
)

func (k DrawKind) String() string {
	switch k {
	case KindUserNative:
		return "USER_NATIVE"
	case KindUserToken:
		return "USER_TOKEN"
	case KindUserNFT:
		return "USER_NFT"
	case KindPlatformWeekly:
		return "PLATFORM_WEEKLY"
	case KindPlatformMonthly:
		return "PLATFORM_MONTHLY"
	}
	return "UNKNOWN"
}

func (k DrawKind) IsPlatform() bool {
	return k == KindPlatformWeekly || k == KindPlatformMonthly
}

func (k DrawKind) IsUser() bool {
	return k == KindUserNative || k == KindUserToken || k == KindUserNFT
}

// DrawStatus is the lifecycle state of a draw.
type DrawStatus uint8

const (
	StatusActive DrawStatus = iota + 1
	StatusAwaitingExecution
	StatusExecuted
	StatusCancelled
)

func (s DrawStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusAwaitingExecution:
		return "AWAITING_EXECUTION"
	case StatusExecuted:
		return "EXECUTED"
	case StatusCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Final reports whether the draw can no longer change.
func (s DrawStatus) Final() bool {
	return s == StatusExecuted || s == StatusCancelled
}

// PrizeModel decides how the net pool is shared between winners and the creator.
type PrizeModel uint8

const (
	PrizeCreatorFunded PrizeModel = iota + 1
	PrizeParticipantFunded
	PrizePercentage
	PrizeTieredPercentage
	PrizeSplitEqually
)

func (m PrizeModel) String() string {
	switch m {
	case PrizeCreatorFunded:
		return "CREATOR_FUNDED"
	case PrizeParticipantFunded:
		return "PARTICIPANT_FUNDED"
	case PrizePercentage:
		return "PERCENTAGE"
	case PrizeTieredPercentage:
		return "TIERED_PERCENTAGE"
	case PrizeSplitEqually:
		return "SPLIT_EQUALLY"
	}
	return "UNKNOWN"
}

// NFTRef identifies one non-fungible token.
type NFTRef struct {
	Collection common.Address `json:"collection"`
	TokenID    uint64         `json:"token_id"`
}

// Tier is one ranked prize of a tiered draw.
type Tier struct {
	ShareBps uint32  `json:"share_bps"`
	NFT      *NFTRef `json:"nft,omitempty"`
}

// PrizeConfig carries the model-specific prize parameters.
type PrizeConfig struct {
	Model         PrizeModel `json:"model"`
	PrizeShareBps uint32     `json:"prize_share_bps,omitempty"` // Percentage: winner's share of net sales
	Tiers         []Tier     `json:"tiers,omitempty"`           // TieredPercentage
	Winners       uint32     `json:"winners,omitempty"`         // SplitEqually
}

// WinnerSlots is the number of winners the model draws.
func (p PrizeConfig) WinnerSlots() int {
	switch p.Model {
	case PrizeTieredPercentage:
		return len(p.Tiers)
	case PrizeSplitEqually:
		return int(p.Winners)
	}
	return 1
}

// RequirementKind selects the participation gate.
type RequirementKind uint8

const (
	RequirementNone RequirementKind = iota
	RequirementFollower
)

// Requirement gates ticket purchases. For RequirementFollower the buyer must follow Target
// (the creator when Target is zero).
type Requirement struct {
	Kind   RequirementKind `json:"kind"`
	Target common.Address  `json:"target"`
}

// FeeSplit is how one purchase's gross value is divided. The parts always sum to the gross.
type FeeSplit struct {
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	ExecutorReward decimal.Decimal `json:"executor_reward"`
	CreatorRevenue decimal.Decimal `json:"creator_revenue"`
	Jackpot        decimal.Decimal `json:"jackpot"`
	NetPool        decimal.Decimal `json:"net_pool"`
}

func (s FeeSplit) Total() decimal.Decimal {
	return s.PlatformFee.Add(s.ExecutorReward).Add(s.CreatorRevenue).Add(s.Jackpot).Add(s.NetPool)
}

func (s FeeSplit) Add(o FeeSplit) FeeSplit {
	return FeeSplit{
		PlatformFee:    s.PlatformFee.Add(o.PlatformFee),
		ExecutorReward: s.ExecutorReward.Add(o.ExecutorReward),
		CreatorRevenue: s.CreatorRevenue.Add(o.CreatorRevenue),
		Jackpot:        s.Jackpot.Add(o.Jackpot),
		NetPool:        s.NetPool.Add(o.NetPool),
	}
}

// Draw is one lottery round.
type Draw struct {
	ID              uint64          `json:"id"`
	Kind            DrawKind        `json:"kind"`
	Creator         common.Address  `json:"creator"`
	Asset           common.Address  `json:"asset"` // fungible asset tickets are priced in; zero is native
	TicketPrice     decimal.Decimal `json:"ticket_price"`
	MaxTickets      uint64          `json:"max_tickets"`
	TicketsSold     uint64          `json:"tickets_sold"`
	MinParticipants uint64          `json:"min_participants"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	GracePeriod     time.Duration   `json:"grace_period"`
	Prize           PrizeConfig     `json:"prize"`
	Requirement     Requirement     `json:"requirement"`
	NFTs            []NFTRef        `json:"nfts,omitempty"`
	Contribution    decimal.Decimal `json:"contribution"` // creator funding, or the jackpot for monthly draws
	Sales           FeeSplit        `json:"sales"`
	Status          DrawStatus      `json:"status"`

	Winners      []common.Address  `json:"winners,omitempty"`
	WinnerShares []decimal.Decimal `json:"winner_shares,omitempty"`
	Executor     common.Address    `json:"executor"`
	Randomness   common.Hash       `json:"randomness"`
	ExecutedAt   time.Time         `json:"executed_at,omitempty"`
	CancelledAt  time.Time         `json:"cancelled_at,omitempty"`
}

// PrizePool is the value shared between winners at execution.
func (d *Draw) PrizePool() decimal.Decimal {
	return d.Sales.NetPool.Add(d.Contribution)
}

// Full reports whether every ticket has been sold.
func (d *Draw) Full() bool {
	return d.TicketsSold >= d.MaxTickets
}

// Viable reports whether enough tickets were sold for the draw to be executed.
func (d *Draw) Viable() bool {
	return d.TicketsSold > 0 && d.TicketsSold >= d.MinParticipants
}

// GraceDeadline is the time after which an unexecuted draw may be force-cancelled.
func (d *Draw) GraceDeadline() time.Time {
	return d.EndTime.Add(d.GracePeriod)
}

// Clone returns a deep copy so stored draws are never aliased by callers.
func (d *Draw) Clone() *Draw {
	c := *d
	c.Prize.Tiers = cloneTiers(d.Prize.Tiers)
	c.NFTs = append([]NFTRef(nil), d.NFTs...)
	c.Winners = append([]common.Address(nil), d.Winners...)
	c.WinnerShares = append([]decimal.Decimal(nil), d.WinnerShares...)
	return &c
}

func cloneTiers(tiers []Tier) []Tier {
	if tiers == nil {
		return nil
	}
	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		out[i] = t
		if t.NFT != nil {
			nft := *t.NFT
			out[i].NFT = &nft
		}
	}
	return out
}
