package treasury

import (
	"context"
	"log"

	"LotteryHub/internal/assets"
	"LotteryHub/internal/errorx"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Treasury keeps the platform fee and jackpot accumulators. Fees are escrowed on their draw at
// purchase time and only settle here when the draw executes.
type Treasury struct {
	store *ledger.Store
	funds assets.Fungible
}

func New(store *ledger.Store, funds assets.Fungible) *Treasury {
	return &Treasury{store: store, funds: funds}
}

// Settle moves an executed draw's escrowed platform fee and jackpot contribution into the
// accumulators.
func (t *Treasury) Settle(d *model.Draw, env model.Env) {
	t.store.AddPlatformFees(d.Asset, d.Sales.PlatformFee)
	if d.Sales.Jackpot.IsPositive() {
		t.store.AddJackpot(d.Sales.Jackpot)
		t.store.Emit(model.Event{
			Type: model.EventJackpotContribution, DrawID: d.ID, Asset: d.Asset,
			Amount: d.Sales.Jackpot, At: env.Now,
		})
	}
}

// RouteToJackpot adds part of a weekly pool to the jackpot.
func (t *Treasury) RouteToJackpot(drawID uint64, amount decimal.Decimal, env model.Env) {
	if !amount.IsPositive() {
		return
	}
	t.store.AddJackpot(amount)
	t.store.Emit(model.Event{
		Type: model.EventJackpotContribution, DrawID: drawID, Asset: model.NativeAsset,
		Amount: amount, Note: "weekly share", At: env.Now,
	})
}

// TakeJackpot empties the jackpot for a monthly draw.
func (t *Treasury) TakeJackpot() decimal.Decimal {
	return t.store.TakeJackpot()
}

// WithdrawPlatformFees pays the accumulated fees of one asset to the given account.
func (t *Treasury) WithdrawPlatformFees(ctx context.Context, env model.Env, asset, to common.Address) (decimal.Decimal, error) {
	amount := t.store.TakePlatformFees(asset)
	if !amount.IsPositive() {
		return decimal.Zero, errorx.ErrNothingToClaim
	}
	if err := t.funds.Push(ctx, asset, to, amount); err != nil {
		return decimal.Zero, err
	}
	t.store.Emit(model.Event{
		Type: model.EventFeesWithdrawn, Account: to, Asset: asset, Amount: amount, At: env.Now,
	})
	log.Printf("[INFO] platform fees withdrawn asset=%s to=%s amount=%s", asset.Hex(), to.Hex(), amount)
	return amount, nil
}

// EmergencyWithdraw moves custody funds out while the platform is paused.
func (t *Treasury) EmergencyWithdraw(ctx context.Context, env model.Env, asset, to common.Address, amount decimal.Decimal) error {
	if !t.store.Settings().Paused {
		return errorx.New(errorx.Precondition, "emergency withdrawal requires the platform to be paused")
	}
	if !amount.IsPositive() {
		return errorx.New(errorx.Validation, "amount must be positive")
	}
	if held := t.funds.Custody(asset); held.LessThan(amount) {
		return errorx.New(errorx.InsufficientFunds, "custody holds %s of %s", held, asset.Hex())
	}
	if err := t.funds.Push(ctx, asset, to, amount); err != nil {
		return err
	}
	t.store.Emit(model.Event{
		Type: model.EventEmergencyWithdrawal, Account: to, Asset: asset, Amount: amount, At: env.Now,
	})
	log.Printf("[WARN] emergency withdrawal asset=%s to=%s amount=%s", asset.Hex(), to.Hex(), amount)
	return nil
}

// View returns the accumulators.
func (t *Treasury) View() model.TreasuryView {
	return model.TreasuryView{PlatformFees: t.store.AllPlatformFees(), Jackpot: t.store.Jackpot()}
}
