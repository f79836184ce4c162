package lottery

import (
	"context"
	"log"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// CancelDraw cancels a user draw that ended without reaching its minimum, or one its creator
// withdraws before any ticket was sold. No value moves; refunds are claimed per account.
func (e *Engine) CancelDraw(_ context.Context, env model.Env, drawID uint64) (*model.Draw, error) {
	d, err := e.store.Draw(drawID)
	if err != nil {
		return nil, err
	}
	if d.Kind.IsPlatform() {
		return nil, errorx.New(errorx.Precondition, "platform draw %d is settled by the scheduler", d.ID)
	}
	if d.Status.Final() {
		return nil, errorx.New(errorx.Precondition, "draw %d is %s", d.ID, d.Status)
	}
	withdrawn := env.Caller == d.Creator && d.TicketsSold == 0
	if !withdrawn {
		if env.Now.Before(d.EndTime) {
			return nil, errorx.New(errorx.Precondition, "draw %d is still selling", d.ID)
		}
		if d.Viable() {
			return nil, errorx.New(errorx.Precondition, "draw %d reached its minimum and must be executed", d.ID)
		}
	}
	return e.cancel(env, d, "unviable")
}

// ForceCancelDraw lets the owner cancel any draw left unexecuted past its grace deadline.
func (e *Engine) ForceCancelDraw(_ context.Context, env model.Env, drawID uint64) (*model.Draw, error) {
	if e.owner == nil || env.Caller != e.owner() {
		return nil, errorx.ErrNotOwner
	}
	d, err := e.store.Draw(drawID)
	if err != nil {
		return nil, err
	}
	if d.Status.Final() {
		return nil, errorx.New(errorx.Precondition, "draw %d is %s", d.ID, d.Status)
	}
	if env.Now.Before(d.GraceDeadline()) {
		return nil, errorx.New(errorx.Precondition, "draw %d is within its grace period until %s", d.ID, d.GraceDeadline())
	}
	return e.cancel(env, d, "forced")
}

// CancelPlatform cancels an unviable weekly or monthly draw for the scheduler.
func (e *Engine) CancelPlatform(env model.Env, drawID uint64) (*model.Draw, error) {
	d, err := e.store.Draw(drawID)
	if err != nil {
		return nil, err
	}
	if !d.Kind.IsPlatform() || d.Status.Final() {
		return nil, errorx.New(errorx.Precondition, "draw %d cannot be cancelled by the scheduler", d.ID)
	}
	return e.cancel(env, d, "unviable")
}

func (e *Engine) cancel(env model.Env, d *model.Draw, reason string) (*model.Draw, error) {
	d.Status = model.StatusCancelled
	d.CancelledAt = env.Now
	if err := e.store.PutDraw(d); err != nil {
		return nil, err
	}
	e.store.Emit(model.Event{
		Type: model.EventDrawCancelled, DrawID: d.ID, Account: env.Caller, Asset: d.Asset,
		Quantity: d.TicketsSold, Note: reason, At: env.Now,
	})
	log.Printf("[INFO] draw cancelled id=%d reason=%s sold=%d min=%d", d.ID, reason, d.TicketsSold, d.MinParticipants)
	return d, nil
}

// refundOf is what an account may reclaim from a cancelled draw: its gross ticket spend, plus
// the contribution and NFTs when it is the creator.
func (e *Engine) refundOf(d *model.Draw, account common.Address) (decimal.Decimal, []model.NFTRef) {
	amount := decimal.Zero
	if p, ok := e.store.Participant(d.ID, account); ok {
		amount = amount.Add(p.Spent)
	}
	var nfts []model.NFTRef
	if account == d.Creator && d.Kind.IsUser() {
		amount = amount.Add(d.Contribution)
		nfts = append(nfts, d.NFTs...)
	}
	return amount, nfts
}

// ClaimRefund returns the caller's entitlement from a cancelled draw. The refund is marked
// before any transfer.
func (e *Engine) ClaimRefund(ctx context.Context, env model.Env, drawID uint64) (*model.Claim, error) {
	d, err := e.store.Draw(drawID)
	if err != nil {
		return nil, err
	}
	if d.Status != model.StatusCancelled {
		return nil, errorx.New(errorx.Precondition, "draw %d is %s, not cancelled", d.ID, d.Status)
	}
	if e.store.Refunded(d.ID, env.Caller) {
		return nil, errorx.ErrNothingToClaim
	}
	amount, nfts := e.refundOf(d, env.Caller)
	if !amount.IsPositive() && len(nfts) == 0 {
		return nil, errorx.ErrNothingToClaim
	}
	e.store.MarkRefunded(d.ID, env.Caller)

	if err := e.funds.Push(ctx, d.Asset, env.Caller, amount); err != nil {
		return nil, err
	}
	for _, nft := range nfts {
		if err := e.nfts.Release(ctx, nft, env.Caller); err != nil {
			return nil, err
		}
	}
	e.store.Emit(model.Event{
		Type: model.EventRefundClaimed, DrawID: d.ID, Account: env.Caller, Asset: d.Asset,
		Amount: amount, Quantity: uint64(len(nfts)), At: env.Now,
	})
	log.Printf("[INFO] refund claimed draw=%d account=%s amount=%s nfts=%d", d.ID, env.Caller.Hex(), amount, len(nfts))
	return &model.Claim{Asset: d.Asset, Amount: amount, NFTs: nfts}, nil
}

// ClaimPrize pays the caller's pending prize in asset, and releases every pending NFT prize
// whose collection is asset.
func (e *Engine) ClaimPrize(ctx context.Context, env model.Env, asset common.Address) (*model.Claim, error) {
	amount := e.store.ZeroPending(env.Caller, asset, model.BalancePrize)
	nfts := e.store.TakePendingNFTs(env.Caller, asset)
	if !amount.IsPositive() && len(nfts) == 0 {
		return nil, errorx.ErrNothingToClaim
	}

	if err := e.funds.Push(ctx, asset, env.Caller, amount); err != nil {
		return nil, err
	}
	for _, nft := range nfts {
		if err := e.nfts.Release(ctx, nft, env.Caller); err != nil {
			return nil, err
		}
	}
	e.store.Emit(model.Event{
		Type: model.EventPrizeClaimed, Account: env.Caller, Asset: asset,
		Amount: amount, Quantity: uint64(len(nfts)), At: env.Now,
	})
	log.Printf("[INFO] prize claimed account=%s asset=%s amount=%s nfts=%d", env.Caller.Hex(), asset.Hex(), amount, len(nfts))
	return &model.Claim{Asset: asset, Amount: amount, NFTs: nfts}, nil
}

func (e *Engine) ClaimExecutorReward(ctx context.Context, env model.Env, asset common.Address) (*model.Claim, error) {
	return e.claimBalance(ctx, env, asset, model.BalanceExecutorReward, model.EventExecutorClaimed)
}

func (e *Engine) ClaimCreatorRevenue(ctx context.Context, env model.Env, asset common.Address) (*model.Claim, error) {
	return e.claimBalance(ctx, env, asset, model.BalanceCreatorRevenue, model.EventCreatorClaimed)
}

func (e *Engine) claimBalance(ctx context.Context, env model.Env, asset common.Address, kind model.BalanceKind, evt model.EventType) (*model.Claim, error) {
	amount := e.store.ZeroPending(env.Caller, asset, kind)
	if !amount.IsPositive() {
		return nil, errorx.ErrNothingToClaim
	}
	if err := e.funds.Push(ctx, asset, env.Caller, amount); err != nil {
		return nil, err
	}
	e.store.Emit(model.Event{Type: evt, Account: env.Caller, Asset: asset, Amount: amount, At: env.Now})
	log.Printf("[INFO] %s claimed account=%s asset=%s amount=%s", kind, env.Caller.Hex(), asset.Hex(), amount)
	return &model.Claim{Asset: asset, Amount: amount}, nil
}
