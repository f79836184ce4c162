package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventType indicates what happened.
type EventType string

const (
	EventDrawCreated         EventType = "DRAW_CREATED"
	EventTicketsPurchased    EventType = "TICKETS_PURCHASED"
	EventDrawFilled          EventType = "DRAW_FILLED"
	EventWinnerCredited      EventType = "WINNER_CREDITED"
	EventExecutorCredited    EventType = "EXECUTOR_CREDITED"
	EventCreatorCredited     EventType = "CREATOR_CREDITED"
	EventDrawExecuted        EventType = "DRAW_EXECUTED"
	EventDrawCancelled       EventType = "DRAW_CANCELLED"
	EventRefundClaimed       EventType = "REFUND_CLAIMED"
	EventPrizeClaimed        EventType = "PRIZE_CLAIMED"
	EventExecutorClaimed     EventType = "EXECUTOR_REWARD_CLAIMED"
	EventCreatorClaimed      EventType = "CREATOR_REVENUE_CLAIMED"
	EventJackpotContribution EventType = "JACKPOT_CONTRIBUTION"
	EventCreditsMinted       EventType = "CREDITS_MINTED"
	EventCreditsConsumed     EventType = "CREDITS_CONSUMED"
	EventFeesWithdrawn       EventType = "FEES_WITHDRAWN"
	EventEmergencyWithdrawal EventType = "EMERGENCY_WITHDRAWAL"
	EventSettingsChanged     EventType = "SETTINGS_CHANGED"
	EventModulesCut          EventType = "MODULES_CUT"
	EventRandomnessFallback  EventType = "RANDOMNESS_FALLBACK"
)

// Event is emitted by state transitions and published once the operation commits.
type Event struct {
	Type     EventType       `json:"type"`
	DrawID   uint64          `json:"draw_id,omitempty"`
	Account  common.Address  `json:"account"`
	Asset    common.Address  `json:"asset"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity uint64          `json:"quantity,omitempty"`
	Note     string          `json:"note,omitempty"`
	At       time.Time       `json:"at"`
}
