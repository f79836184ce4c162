package lottery

import (
	"context"
	"testing"
	"time"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func (h *harness) refund(caller common.Address, drawID uint64) (*model.Claim, error) {
	return h.claim(func(ctx context.Context, env model.Env) (*model.Claim, error) {
		return h.engine.ClaimRefund(ctx, env, drawID)
	}, caller)
}

func TestClaims_AreIdempotent(t *testing.T) {
	h := newHarness(t)
	d := h.mustCreate(alice, decimal.Zero, nativeParams(1000, 1, 1))
	require.NoError(t, h.buy(bob, d.ID, 1))
	_, err := h.execute(dave, d.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller common.Address
		fn     func(context.Context, model.Env, common.Address) (*model.Claim, error)
		want   string
	}{
		{"prize", bob, h.engine.ClaimPrize, "898"},
		{"executor reward", dave, h.engine.ClaimExecutorReward, "10"},
		{"creator revenue", alice, h.engine.ClaimCreatorRevenue, "47"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.bank.BalanceOf(model.NativeAsset, tt.caller)
			call := func(ctx context.Context, env model.Env) (*model.Claim, error) {
				return tt.fn(ctx, env, model.NativeAsset)
			}
			c, err := h.claim(call, tt.caller)
			require.NoError(t, err)
			require.Equal(t, tt.want, c.Amount.String())
			require.Equal(t, tt.want, h.bank.BalanceOf(model.NativeAsset, tt.caller).Sub(before).String())

			_, err = h.claim(call, tt.caller)
			require.ErrorIs(t, err, errorx.ErrNothingToClaim)
		})
	}
	require.True(t, h.bank.Custody(model.NativeAsset).Equal(h.owed(model.NativeAsset, alice, bob, dave)))
	require.Equal(t, "45", h.bank.Custody(model.NativeAsset).String())
}

func TestCancelDraw_GrossRefunds(t *testing.T) {
	h := newHarness(t)
	d := h.mustCreate(alice, decimal.Zero, nativeParams(1000, 20, 10))
	require.NoError(t, h.buy(bob, d.ID, 2))
	require.NoError(t, h.buy(carol, d.ID, 1))

	require.True(t, errorx.Is(h.cancel(dave, d.ID), errorx.Precondition), "still selling")
	_, err := h.refund(bob, d.ID)
	require.True(t, errorx.Is(err, errorx.Precondition), "not cancelled")

	h.pastEnd(d)
	_, err = h.execute(dave, d.ID)
	require.True(t, errorx.Is(err, errorx.Precondition), "below minimum")
	require.NoError(t, h.cancel(dave, d.ID))
	require.Len(t, h.eventsOf(model.EventDrawCancelled), 1)
	require.True(t, errorx.Is(h.cancel(dave, d.ID), errorx.Precondition))
	_, err = h.execute(dave, d.ID)
	require.True(t, errorx.Is(err, errorx.Precondition))

	require.Equal(t, []uint64{d.ID}, h.engine.PendingSummary(bob).Refundable)

	before := h.bank.BalanceOf(model.NativeAsset, bob)
	c, err := h.refund(bob, d.ID)
	require.NoError(t, err)
	require.Equal(t, "2000", c.Amount.String())
	require.Equal(t, "2000", h.bank.BalanceOf(model.NativeAsset, bob).Sub(before).String())
	require.Empty(t, h.engine.PendingSummary(bob).Refundable)

	_, err = h.refund(bob, d.ID)
	require.ErrorIs(t, err, errorx.ErrNothingToClaim)
	_, err = h.refund(dave, d.ID)
	require.ErrorIs(t, err, errorx.ErrNothingToClaim)

	c, err = h.refund(carol, d.ID)
	require.NoError(t, err)
	require.Equal(t, "1000", c.Amount.String())
	require.True(t, h.bank.Custody(model.NativeAsset).IsZero())
	require.True(t, h.store.PlatformFees(model.NativeAsset).IsZero())
	require.True(t, h.store.Jackpot().IsZero())
}

func TestCancelDraw_CreatorReclaimsContribution(t *testing.T) {
	h := newHarness(t)
	p := nativeParams(1000, 10, 5)
	p.Prize = model.PrizeConfig{Model: model.PrizeCreatorFunded}
	p.Contribution = dec(5000)
	d := h.mustCreate(alice, dec(5000), p)
	require.Equal(t, "5000", h.bank.Custody(model.NativeAsset).String())
	require.NoError(t, h.buy(bob, d.ID, 1))

	h.pastEnd(d)
	require.NoError(t, h.cancel(carol, d.ID))
	require.Equal(t, []uint64{d.ID}, h.engine.PendingSummary(alice).Refundable)

	c, err := h.refund(alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, "5000", c.Amount.String())
	c, err = h.refund(bob, d.ID)
	require.NoError(t, err)
	require.Equal(t, "1000", c.Amount.String())
	require.True(t, h.bank.Custody(model.NativeAsset).IsZero())
}

func TestCancelDraw_CreatorWithdrawsUnsoldDraw(t *testing.T) {
	h := newHarness(t)
	nft := model.NFTRef{Collection: punks, TokenID: 1}
	h.bank.MintNFT(nft, alice)
	h.bank.ApproveNFT(nft, true)
	d := h.mustCreate(alice, decimal.Zero, CreateParams{
		Kind:        model.KindUserNFT,
		TicketPrice: dec(100),
		MaxTickets:  5,
		Duration:    24 * time.Hour,
		Prize:       model.PrizeConfig{Model: model.PrizeCreatorFunded},
		NFTs:        []model.NFTRef{nft},
	})

	require.True(t, errorx.Is(h.cancel(bob, d.ID), errorx.Precondition), "only the creator may withdraw early")
	require.NoError(t, h.cancel(alice, d.ID))

	c, err := h.refund(alice, d.ID)
	require.NoError(t, err)
	require.Equal(t, []model.NFTRef{nft}, c.NFTs)
	got, _ := h.bank.OwnerOf(nft)
	require.Equal(t, alice, got)
}

func TestForceCancelDraw(t *testing.T) {
	h := newHarness(t)
	d := h.mustCreate(alice, decimal.Zero, nativeParams(1000, 10, 1))
	require.NoError(t, h.buy(bob, d.ID, 1))
	h.pastEnd(d)

	require.True(t, errorx.Is(h.cancel(dave, d.ID), errorx.Precondition), "viable draws must be executed")

	force := func(caller common.Address) error {
		return h.tx(func() error {
			_, err := h.engine.ForceCancelDraw(context.Background(), h.env(caller, decimal.Zero), d.ID)
			return err
		})
	}
	require.True(t, errorx.Is(force(owner), errorx.Precondition), "within grace")
	h.now = d.GraceDeadline()
	require.ErrorIs(t, force(bob), errorx.ErrNotOwner)
	require.NoError(t, force(owner))

	got, _ := h.store.Draw(d.ID)
	require.Equal(t, model.StatusCancelled, got.Status)
	require.Equal(t, "forced", h.eventsOf(model.EventDrawCancelled)[0].Note)

	c, err := h.refund(bob, d.ID)
	require.NoError(t, err)
	require.Equal(t, "1000", c.Amount.String())
}

func TestClaimPrize_ReentrantClaimFindsNothing(t *testing.T) {
	h := newHarness(t)
	d := h.mustCreate(alice, decimal.Zero, nativeParams(1000, 1, 1))
	require.NoError(t, h.buy(bob, d.ID, 1))
	_, err := h.execute(dave, d.ID)
	require.NoError(t, err)

	var inner error
	calls := 0
	h.bank.OnReceive = func(ctx context.Context, to, asset common.Address, _ decimal.Decimal) {
		calls++
		if calls > 1 {
			return
		}
		_, inner = h.engine.ClaimPrize(ctx, model.Env{Caller: to, Now: h.now}, asset)
	}
	before := h.bank.BalanceOf(model.NativeAsset, bob)
	_, err = h.claim(func(ctx context.Context, env model.Env) (*model.Claim, error) {
		return h.engine.ClaimPrize(ctx, env, model.NativeAsset)
	}, bob)
	require.NoError(t, err)
	require.ErrorIs(t, inner, errorx.ErrNothingToClaim)
	require.Equal(t, "898", h.bank.BalanceOf(model.NativeAsset, bob).Sub(before).String())
}

func TestPendingSummary_AfterExecution(t *testing.T) {
	h := newHarness(t)
	d := h.mustCreate(alice, decimal.Zero, nativeParams(1000, 1, 1))
	require.NoError(t, h.buy(bob, d.ID, 1))
	_, err := h.execute(bob, d.ID)
	require.NoError(t, err)

	s := h.engine.PendingSummary(bob)
	require.Empty(t, s.Refundable)
	kinds := map[model.BalanceKind]string{}
	for _, b := range s.Balances {
		kinds[b.Kind] = b.Amount.String()
	}
	require.Equal(t, map[model.BalanceKind]string{
		model.BalancePrize:          "898",
		model.BalanceExecutorReward: "10",
	}, kinds)
}
