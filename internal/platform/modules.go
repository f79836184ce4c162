package platform

import (
	"context"
	"fmt"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/lottery"
	"LotteryHub/internal/model"
	"LotteryHub/internal/registry"
	"LotteryHub/internal/scheduler"
	"LotteryHub/internal/statistics"
	"LotteryHub/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// Selectors.
const (
	SelCreateDraw          registry.Selector = "createDraw"
	SelBuyTickets          registry.Selector = "buyTickets"
	SelExecuteDraw         registry.Selector = "executeDraw"
	SelCancelDraw          registry.Selector = "cancelDraw"
	SelForceCancelDraw     registry.Selector = "forceCancelDraw"
	SelClaimRefund         registry.Selector = "claimRefund"
	SelClaimPrize          registry.Selector = "claimPrize"
	SelClaimExecutorReward registry.Selector = "claimExecutorReward"
	SelClaimCreatorRevenue registry.Selector = "claimCreatorRevenue"

	SelInitializeScheduler registry.Selector = "initializeScheduler"
	SelExecuteWeeklyDraw   registry.Selector = "executeWeeklyDraw"
	SelExecuteMonthlyDraw  registry.Selector = "executeMonthlyDraw"

	SelSetFees               registry.Selector = "setFees"
	SelSetCreditPolicy       registry.Selector = "setCreditPolicy"
	SelSetPaused             registry.Selector = "setPaused"
	SelSetRandomnessFallback registry.Selector = "setRandomnessFallback"
	SelWithdrawPlatformFees  registry.Selector = "withdrawPlatformFees"
	SelEmergencyWithdraw     registry.Selector = "emergencyWithdraw"

	SelGetDraw           registry.Selector = "getDraw"
	SelGetTiming         registry.Selector = "getTiming"
	SelGetParticipants   registry.Selector = "getParticipants"
	SelGetActiveDraws    registry.Selector = "getActiveDraws"
	SelGetAccountDraws   registry.Selector = "getAccountDraws"
	SelGetLeaderboard    registry.Selector = "getLeaderboard"
	SelGetPendingSummary registry.Selector = "getPendingSummary"
	SelGetTreasury       registry.Selector = "getTreasury"
	SelGetCredits        registry.Selector = "getCredits"
)

var (
	LifecycleSelectors = []registry.Selector{
		SelCreateDraw, SelBuyTickets, SelExecuteDraw, SelCancelDraw, SelForceCancelDraw,
		SelClaimRefund, SelClaimPrize, SelClaimExecutorReward, SelClaimCreatorRevenue,
	}
	SchedulerSelectors = []registry.Selector{SelInitializeScheduler, SelExecuteWeeklyDraw, SelExecuteMonthlyDraw}
	AdminSelectors     = []registry.Selector{
		SelSetFees, SelSetCreditPolicy, SelSetPaused, SelSetRandomnessFallback,
		SelWithdrawPlatformFees, SelEmergencyWithdraw,
	}
	ViewSelectors = []registry.Selector{
		SelGetDraw, SelGetTiming, SelGetParticipants, SelGetActiveDraws, SelGetAccountDraws,
		SelGetLeaderboard, SelGetPendingSummary, SelGetTreasury, SelGetCredits,
	}
)

// ModuleAddress derives the deployment address of a named module.
func ModuleAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("lotteryhub.module." + name))[12:])
}

// Call arguments.
type (
	DrawArgs struct{ DrawID uint64 }
	BuyArgs  struct {
		DrawID   uint64
		Quantity uint64
	}
	AssetArgs    struct{ Asset common.Address }
	AccountArgs  struct{ Account common.Address }
	FlagArgs     struct{ On bool }
	WithdrawArgs struct {
		Asset  common.Address
		To     common.Address
		Amount decimal.Decimal
	}
	LeaderboardArgs struct {
		Board model.Board
		Limit int
	}
)

func argsOf[T any](call registry.Call) (T, error) {
	v, ok := call.Args.(T)
	if !ok {
		var zero T
		return zero, errorx.New(errorx.Validation, "%s: unexpected arguments %T", call.Selector, call.Args)
	}
	return v, nil
}

func unknown(call registry.Call) error {
	return errorx.New(errorx.Validation, "selector %s is not served by this module", call.Selector)
}

// LifecycleModule serves draw creation, sales, execution, cancellation and claims.
type LifecycleModule struct {
	Engine *lottery.Engine
}

func (m *LifecycleModule) Handle(ctx context.Context, call registry.Call) (any, error) {
	env := call.Env
	switch call.Selector {
	case SelCreateDraw:
		p, err := argsOf[lottery.CreateParams](call)
		if err != nil {
			return nil, err
		}
		return m.Engine.CreateDraw(ctx, env, p)
	case SelBuyTickets:
		a, err := argsOf[BuyArgs](call)
		if err != nil {
			return nil, err
		}
		return m.Engine.BuyTickets(ctx, env, a.DrawID, a.Quantity)
	case SelExecuteDraw, SelCancelDraw, SelForceCancelDraw, SelClaimRefund:
		a, err := argsOf[DrawArgs](call)
		if err != nil {
			return nil, err
		}
		switch call.Selector {
		case SelExecuteDraw:
			return m.Engine.ExecuteDraw(ctx, env, a.DrawID)
		case SelCancelDraw:
			return m.Engine.CancelDraw(ctx, env, a.DrawID)
		case SelForceCancelDraw:
			return m.Engine.ForceCancelDraw(ctx, env, a.DrawID)
		default:
			return m.Engine.ClaimRefund(ctx, env, a.DrawID)
		}
	case SelClaimPrize, SelClaimExecutorReward, SelClaimCreatorRevenue:
		a, err := argsOf[AssetArgs](call)
		if err != nil {
			return nil, err
		}
		switch call.Selector {
		case SelClaimPrize:
			return m.Engine.ClaimPrize(ctx, env, a.Asset)
		case SelClaimExecutorReward:
			return m.Engine.ClaimExecutorReward(ctx, env, a.Asset)
		default:
			return m.Engine.ClaimCreatorRevenue(ctx, env, a.Asset)
		}
	}
	return nil, unknown(call)
}

// SchedulerModule serves the recurring platform draws.
type SchedulerModule struct {
	Scheduler *scheduler.Scheduler
	Owner     func() common.Address
}

func (m *SchedulerModule) Handle(ctx context.Context, call registry.Call) (any, error) {
	switch call.Selector {
	case SelInitializeScheduler:
		if call.Env.Caller != m.Owner() {
			return nil, errorx.ErrNotOwner
		}
		return m.Scheduler.Initialize(ctx, call.Env)
	case SelExecuteWeeklyDraw:
		return m.Scheduler.ExecuteWeeklyDraw(ctx, call.Env)
	case SelExecuteMonthlyDraw:
		return m.Scheduler.ExecuteMonthlyDraw(ctx, call.Env)
	}
	return nil, unknown(call)
}

// AdminModule serves the owner-only setters and withdrawals. Its initializer seeds the
// settings.
type AdminModule struct {
	Store    *ledger.Store
	Treasury *treasury.Treasury
	Owner    func() common.Address
}

// Init stores the initial settings when data is a model.Settings.
func (m *AdminModule) Init(_ context.Context, env model.Env, data any) error {
	s, ok := data.(model.Settings)
	if !ok {
		return errorx.New(errorx.Validation, "admin init expects settings, got %T", data)
	}
	if err := treasury.ValidateFees(s.Fees); err != nil {
		return err
	}
	m.Store.SetSettings(s)
	m.Store.Emit(model.Event{Type: model.EventSettingsChanged, Account: env.Caller, Note: "init", At: env.Now})
	return nil
}

func (m *AdminModule) Handle(ctx context.Context, call registry.Call) (any, error) {
	env := call.Env
	if env.Caller != m.Owner() {
		return nil, errorx.ErrNotOwner
	}
	s := m.Store.Settings()
	var note string
	switch call.Selector {
	case SelSetFees:
		f, err := argsOf[model.FeeSchedule](call)
		if err != nil {
			return nil, err
		}
		if err := treasury.ValidateFees(f); err != nil {
			return nil, err
		}
		s.Fees = f
		note = fmt.Sprintf("fees platform=%d executor=%d cap=%s creator=%d jackpot=%d",
			f.PlatformBps, f.ExecutorBps, f.ExecutorCap, f.CreatorBps, f.JackpotBps)
	case SelSetCreditPolicy:
		c, err := argsOf[model.CreditPolicy](call)
		if err != nil {
			return nil, err
		}
		s.Credits = c
		note = fmt.Sprintf("credits weekly=%d creation=%d ticket=%d", c.PerWeeklyTicket, c.PerDrawCreation, c.PerUserTicket)
	case SelSetPaused:
		f, err := argsOf[FlagArgs](call)
		if err != nil {
			return nil, err
		}
		s.Paused = f.On
		note = fmt.Sprintf("paused=%v", f.On)
	case SelSetRandomnessFallback:
		f, err := argsOf[FlagArgs](call)
		if err != nil {
			return nil, err
		}
		s.RandomnessFallback = f.On
		note = fmt.Sprintf("randomness_fallback=%v", f.On)
	case SelWithdrawPlatformFees:
		a, err := argsOf[WithdrawArgs](call)
		if err != nil {
			return nil, err
		}
		return m.Treasury.WithdrawPlatformFees(ctx, env, a.Asset, a.To)
	case SelEmergencyWithdraw:
		a, err := argsOf[WithdrawArgs](call)
		if err != nil {
			return nil, err
		}
		if err := m.Treasury.EmergencyWithdraw(ctx, env, a.Asset, a.To, a.Amount); err != nil {
			return nil, err
		}
		return a.Amount, nil
	default:
		return nil, unknown(call)
	}
	m.Store.SetSettings(s)
	m.Store.Emit(model.Event{Type: model.EventSettingsChanged, Account: env.Caller, Note: note, At: env.Now})
	return s, nil
}

// ViewModule serves the read operations.
type ViewModule struct {
	Engine   *lottery.Engine
	Stats    *statistics.Aggregator
	Treasury *treasury.Treasury
}

func (m *ViewModule) Handle(_ context.Context, call registry.Call) (any, error) {
	switch call.Selector {
	case SelGetDraw, SelGetTiming, SelGetParticipants:
		a, err := argsOf[DrawArgs](call)
		if err != nil {
			return nil, err
		}
		switch call.Selector {
		case SelGetDraw:
			return m.Engine.Draw(a.DrawID)
		case SelGetTiming:
			return m.Engine.Timing(call.Env, a.DrawID)
		default:
			return m.Engine.Participants(a.DrawID)
		}
	case SelGetActiveDraws:
		return m.Engine.ActiveDraws(), nil
	case SelGetAccountDraws, SelGetPendingSummary, SelGetCredits:
		a, err := argsOf[AccountArgs](call)
		if err != nil {
			return nil, err
		}
		switch call.Selector {
		case SelGetAccountDraws:
			return m.Engine.AccountDraws(a.Account), nil
		case SelGetPendingSummary:
			return m.Engine.PendingSummary(a.Account), nil
		default:
			return m.Engine.Credits(a.Account), nil
		}
	case SelGetLeaderboard:
		a, err := argsOf[LeaderboardArgs](call)
		if err != nil {
			return nil, err
		}
		if !statistics.Valid(a.Board) {
			return nil, errorx.New(errorx.Validation, "unknown leaderboard %q", a.Board)
		}
		return m.Stats.Top(a.Board, a.Limit), nil
	case SelGetTreasury:
		return m.Treasury.View(), nil
	}
	return nil, unknown(call)
}
