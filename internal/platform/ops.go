package platform

import (
	"context"

	"LotteryHub/internal/lottery"
	"LotteryHub/internal/model"
	"LotteryHub/internal/scheduler"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var zero = decimal.Zero

// ---- lifecycle ----

// CreateDraw opens a user draw. value is the native contribution attached to the call.
func (p *Platform) CreateDraw(ctx context.Context, caller common.Address, value decimal.Decimal, params lottery.CreateParams) (*model.Draw, error) {
	return invoke[*model.Draw](ctx, p, caller, value, SelCreateDraw, params)
}

// BuyTickets buys tickets; value must equal quantity times the ticket price for native draws.
func (p *Platform) BuyTickets(ctx context.Context, caller common.Address, value decimal.Decimal, drawID, quantity uint64) (*model.Purchase, error) {
	return invoke[*model.Purchase](ctx, p, caller, value, SelBuyTickets, BuyArgs{DrawID: drawID, Quantity: quantity})
}

func (p *Platform) ExecuteDraw(ctx context.Context, caller common.Address, drawID uint64) (*model.Draw, error) {
	return invoke[*model.Draw](ctx, p, caller, zero, SelExecuteDraw, DrawArgs{DrawID: drawID})
}

func (p *Platform) CancelDraw(ctx context.Context, caller common.Address, drawID uint64) (*model.Draw, error) {
	return invoke[*model.Draw](ctx, p, caller, zero, SelCancelDraw, DrawArgs{DrawID: drawID})
}

func (p *Platform) ForceCancelDraw(ctx context.Context, caller common.Address, drawID uint64) (*model.Draw, error) {
	return invoke[*model.Draw](ctx, p, caller, zero, SelForceCancelDraw, DrawArgs{DrawID: drawID})
}

func (p *Platform) ClaimRefund(ctx context.Context, caller common.Address, drawID uint64) (*model.Claim, error) {
	return invoke[*model.Claim](ctx, p, caller, zero, SelClaimRefund, DrawArgs{DrawID: drawID})
}

func (p *Platform) ClaimPrize(ctx context.Context, caller, asset common.Address) (*model.Claim, error) {
	return invoke[*model.Claim](ctx, p, caller, zero, SelClaimPrize, AssetArgs{Asset: asset})
}

func (p *Platform) ClaimExecutorReward(ctx context.Context, caller, asset common.Address) (*model.Claim, error) {
	return invoke[*model.Claim](ctx, p, caller, zero, SelClaimExecutorReward, AssetArgs{Asset: asset})
}

func (p *Platform) ClaimCreatorRevenue(ctx context.Context, caller, asset common.Address) (*model.Claim, error) {
	return invoke[*model.Claim](ctx, p, caller, zero, SelClaimCreatorRevenue, AssetArgs{Asset: asset})
}

// ---- scheduler ----

func (p *Platform) InitializeScheduler(ctx context.Context, caller common.Address) (model.ScheduleState, error) {
	return invoke[model.ScheduleState](ctx, p, caller, zero, SelInitializeScheduler, nil)
}

func (p *Platform) ExecuteWeeklyDraw(ctx context.Context, caller common.Address) (*scheduler.Round, error) {
	return invoke[*scheduler.Round](ctx, p, caller, zero, SelExecuteWeeklyDraw, nil)
}

func (p *Platform) ExecuteMonthlyDraw(ctx context.Context, caller common.Address) (*scheduler.Round, error) {
	return invoke[*scheduler.Round](ctx, p, caller, zero, SelExecuteMonthlyDraw, nil)
}

// ---- admin ----

func (p *Platform) SetFees(ctx context.Context, caller common.Address, fees model.FeeSchedule) (model.Settings, error) {
	return invoke[model.Settings](ctx, p, caller, zero, SelSetFees, fees)
}

func (p *Platform) SetCreditPolicy(ctx context.Context, caller common.Address, policy model.CreditPolicy) (model.Settings, error) {
	return invoke[model.Settings](ctx, p, caller, zero, SelSetCreditPolicy, policy)
}

func (p *Platform) SetPaused(ctx context.Context, caller common.Address, paused bool) (model.Settings, error) {
	return invoke[model.Settings](ctx, p, caller, zero, SelSetPaused, FlagArgs{On: paused})
}

func (p *Platform) SetRandomnessFallback(ctx context.Context, caller common.Address, enabled bool) (model.Settings, error) {
	return invoke[model.Settings](ctx, p, caller, zero, SelSetRandomnessFallback, FlagArgs{On: enabled})
}

func (p *Platform) WithdrawPlatformFees(ctx context.Context, caller, asset, to common.Address) (decimal.Decimal, error) {
	return invoke[decimal.Decimal](ctx, p, caller, zero, SelWithdrawPlatformFees, WithdrawArgs{Asset: asset, To: to})
}

func (p *Platform) EmergencyWithdraw(ctx context.Context, caller, asset, to common.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	return invoke[decimal.Decimal](ctx, p, caller, zero, SelEmergencyWithdraw, WithdrawArgs{Asset: asset, To: to, Amount: amount})
}

// ---- views ----

func (p *Platform) GetDraw(ctx context.Context, drawID uint64) (*model.Draw, error) {
	return invoke[*model.Draw](ctx, p, common.Address{}, zero, SelGetDraw, DrawArgs{DrawID: drawID})
}

func (p *Platform) GetTiming(ctx context.Context, drawID uint64) (*model.Timing, error) {
	return invoke[*model.Timing](ctx, p, common.Address{}, zero, SelGetTiming, DrawArgs{DrawID: drawID})
}

func (p *Platform) GetParticipants(ctx context.Context, drawID uint64) ([]model.Participant, error) {
	return invoke[[]model.Participant](ctx, p, common.Address{}, zero, SelGetParticipants, DrawArgs{DrawID: drawID})
}

func (p *Platform) GetActiveDraws(ctx context.Context) ([]*model.Draw, error) {
	return invoke[[]*model.Draw](ctx, p, common.Address{}, zero, SelGetActiveDraws, nil)
}

func (p *Platform) GetAccountDraws(ctx context.Context, account common.Address) ([]*model.Draw, error) {
	return invoke[[]*model.Draw](ctx, p, common.Address{}, zero, SelGetAccountDraws, AccountArgs{Account: account})
}

func (p *Platform) GetLeaderboard(ctx context.Context, board model.Board, limit int) ([]model.Standing, error) {
	return invoke[[]model.Standing](ctx, p, common.Address{}, zero, SelGetLeaderboard, LeaderboardArgs{Board: board, Limit: limit})
}

func (p *Platform) GetPendingSummary(ctx context.Context, account common.Address) (*model.ClaimSummary, error) {
	return invoke[*model.ClaimSummary](ctx, p, common.Address{}, zero, SelGetPendingSummary, AccountArgs{Account: account})
}

func (p *Platform) GetTreasury(ctx context.Context) (model.TreasuryView, error) {
	return invoke[model.TreasuryView](ctx, p, common.Address{}, zero, SelGetTreasury, nil)
}

func (p *Platform) GetCredits(ctx context.Context, account common.Address) (model.Credits, error) {
	return invoke[model.Credits](ctx, p, common.Address{}, zero, SelGetCredits, AccountArgs{Account: account})
}
