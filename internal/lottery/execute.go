package lottery

import (
	"context"
	"log"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"
	"LotteryHub/internal/randomness"
	"LotteryHub/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// maxResample is how many re-hashes a slot gets before falling back to a linear scan.
const maxResample = 8

// ExecuteOptions adjust execution of platform draws.
type ExecuteOptions struct {
	// JackpotShareBps of the prize pool is routed to the jackpot before distribution.
	JackpotShareBps uint32
	// FundFromJackpot moves the whole jackpot into the prize pool.
	FundFromJackpot bool
}

// ExecuteDraw picks the winners of an eligible user draw and credits every share to pending
// balances. The caller earns the draw's executor reward.
func (e *Engine) ExecuteDraw(ctx context.Context, env model.Env, drawID uint64) (*model.Draw, error) {
	d, err := e.store.Draw(drawID)
	if err != nil {
		return nil, err
	}
	if d.Kind.IsPlatform() {
		return nil, errorx.New(errorx.Precondition, "platform draw %d is executed by the scheduler", d.ID)
	}
	return e.execute(ctx, env, d, ExecuteOptions{})
}

// ExecutePlatform executes a weekly or monthly draw on behalf of the scheduler.
func (e *Engine) ExecutePlatform(ctx context.Context, env model.Env, drawID uint64, opts ExecuteOptions) (*model.Draw, error) {
	d, err := e.store.Draw(drawID)
	if err != nil {
		return nil, err
	}
	if !d.Kind.IsPlatform() {
		return nil, errorx.New(errorx.Validation, "draw %d is not a platform draw", d.ID)
	}
	return e.execute(ctx, env, d, opts)
}

// Executable returns nil when the draw can be executed now.
func Executable(d *model.Draw, env model.Env) error {
	switch d.Status {
	case model.StatusExecuted:
		return errorx.New(errorx.Precondition, "draw %d already executed", d.ID)
	case model.StatusCancelled:
		return errorx.New(errorx.Precondition, "draw %d is cancelled", d.ID)
	}
	if env.Now.Before(d.EndTime) && !d.Full() {
		return errorx.New(errorx.Precondition, "draw %d is not eligible before %s", d.ID, d.EndTime)
	}
	if !d.Viable() {
		return errorx.New(errorx.Precondition, "draw %d sold %d of %d required tickets", d.ID, d.TicketsSold, d.MinParticipants)
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, env model.Env, d *model.Draw, opts ExecuteOptions) (*model.Draw, error) {
	if err := Executable(d, env); err != nil {
		return nil, err
	}
	parts := e.store.Participants(d.ID)
	if len(parts) == 0 {
		return nil, errorx.New(errorx.Precondition, "draw %d has no participants", d.ID)
	}

	slots := d.Prize.WinnerSlots()
	values := make([]common.Hash, slots)
	fallback := false
	allow := e.store.Settings().RandomnessFallback
	for i := range values {
		res, err := e.rand.Next(ctx, e.store, randomness.Request{Caller: env.Caller, DrawID: d.ID, Now: env.Now}, allow)
		if err != nil {
			return nil, err
		}
		values[i] = res.Value
		fallback = fallback || res.Fallback
	}
	if fallback {
		e.store.Emit(model.Event{Type: model.EventRandomnessFallback, DrawID: d.ID, At: env.Now})
	}

	if opts.FundFromJackpot {
		d.Contribution = d.Contribution.Add(e.treasury.TakeJackpot())
	}
	pool := d.PrizePool()
	if opts.JackpotShareBps > 0 {
		share := treasury.MulBps(d.Sales.NetPool, opts.JackpotShareBps)
		e.treasury.RouteToJackpot(d.ID, share, env)
		pool = pool.Sub(share)
	}

	picks := PickWinners(parts, values)
	shares := Distribute(d.Prize, pool, len(picks))
	d.Winners = make([]common.Address, len(picks))
	d.WinnerShares = shares
	for i, idx := range picks {
		w := parts[idx].Account
		d.Winners[i] = w
		e.store.Credit(w, d.Asset, model.BalancePrize, shares[i])
		e.store.AddStat(model.BoardWinners, w, shares[i], 1)
		e.store.Emit(model.Event{
			Type: model.EventWinnerCredited, DrawID: d.ID, Account: w, Asset: d.Asset,
			Amount: shares[i], Quantity: uint64(i + 1), At: env.Now,
		})
	}
	for i, slot := range assignNFTs(d) {
		nft := d.NFTs[i]
		w := d.Winners[slot]
		e.store.AddPendingNFT(w, nft)
		e.store.Emit(model.Event{
			Type: model.EventWinnerCredited, DrawID: d.ID, Account: w, Asset: nft.Collection,
			Quantity: nft.TokenID, Note: "nft", At: env.Now,
		})
	}

	if d.Sales.ExecutorReward.IsPositive() {
		e.store.Credit(env.Caller, d.Asset, model.BalanceExecutorReward, d.Sales.ExecutorReward)
		e.store.Emit(model.Event{
			Type: model.EventExecutorCredited, DrawID: d.ID, Account: env.Caller, Asset: d.Asset,
			Amount: d.Sales.ExecutorReward, At: env.Now,
		})
	}
	e.store.AddStat(model.BoardExecutors, env.Caller, d.Sales.ExecutorReward, 1)
	if d.Sales.CreatorRevenue.IsPositive() {
		e.store.Credit(d.Creator, d.Asset, model.BalanceCreatorRevenue, d.Sales.CreatorRevenue)
		e.store.Emit(model.Event{
			Type: model.EventCreatorCredited, DrawID: d.ID, Account: d.Creator, Asset: d.Asset,
			Amount: d.Sales.CreatorRevenue, At: env.Now,
		})
	}
	if d.Kind.IsUser() {
		e.store.AddStat(model.BoardCreators, d.Creator, d.Sales.CreatorRevenue, 1)
	}
	e.treasury.Settle(d, env)

	d.Status = model.StatusExecuted
	d.Executor = env.Caller
	d.Randomness = values[0]
	d.ExecutedAt = env.Now
	if err := e.store.PutDraw(d); err != nil {
		return nil, err
	}
	e.store.Emit(model.Event{
		Type: model.EventDrawExecuted, DrawID: d.ID, Account: env.Caller, Asset: d.Asset,
		Amount: pool, Quantity: uint64(len(d.Winners)), Note: d.Kind.String(), At: env.Now,
	})

	log.Printf("[INFO] draw executed id=%d kind=%s winners=%d pool=%s executor=%s fallback=%v",
		d.ID, d.Kind, len(d.Winners), pool, env.Caller.Hex(), fallback)
	return d, nil
}

// PickWinners maps one random value per slot onto the weighted participant list and returns
// participant indexes. A participant is picked at most once while there are enough distinct
// participants: a repeat is re-hashed up to maxResample times, then replaced by the next
// unselected participant in ticket order.
func PickWinners(parts []model.Participant, values []common.Hash) []int {
	var total uint64
	for _, p := range parts {
		total += p.Tickets
	}
	unique := len(parts) >= len(values)
	taken := make(map[int]bool, len(values))
	picks := make([]int, 0, len(values))

	for slot, v := range values {
		idx := holderOf(parts, randomness.InRange(v, total))
		if unique && taken[idx] {
			for attempt := uint64(1); attempt <= maxResample && taken[idx]; attempt++ {
				idx = holderOf(parts, randomness.InRange(randomness.Derive(v, uint64(slot), attempt), total))
			}
			for taken[idx] {
				idx = (idx + 1) % len(parts)
			}
		}
		taken[idx] = true
		picks = append(picks, idx)
	}
	return picks
}

// holderOf resolves a ticket number to the participant holding it.
func holderOf(parts []model.Participant, ticket uint64) int {
	var cum uint64
	for i, p := range parts {
		cum += p.Tickets
		if ticket < cum {
			return i
		}
	}
	return len(parts) - 1
}

// Distribute splits the pool over n winners according to the prize model. Integer dust goes
// to the first winner.
func Distribute(pc model.PrizeConfig, pool decimal.Decimal, n int) []decimal.Decimal {
	shares := make([]decimal.Decimal, n)
	if n == 0 {
		return shares
	}
	switch pc.Model {
	case model.PrizeTieredPercentage:
		sum := decimal.Zero
		for i := range shares {
			shares[i] = treasury.MulBps(pool, pc.Tiers[i].ShareBps)
			sum = sum.Add(shares[i])
		}
		shares[0] = shares[0].Add(pool.Sub(sum))
	case model.PrizeSplitEqually:
		q, r := treasury.DivFloor(pool, int64(n))
		for i := range shares {
			shares[i] = q
		}
		shares[0] = shares[0].Add(r)
	default:
		for i := range shares {
			shares[i] = decimal.Zero
		}
		shares[0] = pool
	}
	return shares
}

// assignNFTs returns the winner slot of each escrowed NFT, aligned with d.NFTs: a tier's bound
// NFT goes to that tier, everything else to the first winner.
func assignNFTs(d *model.Draw) []int {
	bound := make(map[model.NFTRef]int)
	if d.Prize.Model == model.PrizeTieredPercentage {
		for i, t := range d.Prize.Tiers {
			if t.NFT != nil && i < len(d.Winners) {
				bound[*t.NFT] = i
			}
		}
	}
	out := make([]int, len(d.NFTs))
	for i, nft := range d.NFTs {
		out[i] = bound[nft]
	}
	return out
}
