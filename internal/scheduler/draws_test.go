package scheduler

import (
	"context"
	"testing"
	"time"

	"LotteryHub/internal/assets"
	"LotteryHub/internal/errorx"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/lottery"
	"LotteryHub/internal/model"
	"LotteryHub/internal/randomness"
	"LotteryHub/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	house = common.HexToAddress("0x0001")
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

type fixture struct {
	t     *testing.T
	store *ledger.Store
	bank  *assets.Bank
	eng   *lottery.Engine
	sched *Scheduler
	now   time.Time
}

func testPlans() Plans {
	p := DefaultPlans()
	p.Weekly.TicketPrice = decimal.NewFromInt(1000)
	return p
}

func newFixture(t *testing.T) *fixture {
	store := ledger.New(model.Settings{
		Fees:               model.FeeSchedule{PlatformBps: 250, ExecutorBps: 100, CreatorBps: 500, JackpotBps: 200},
		Credits:            model.CreditPolicy{PerWeeklyTicket: 1, PerDrawCreation: 5, PerUserTicket: 1},
		RandomnessFallback: true,
	})
	bank := assets.NewBank()
	bank.Mint(model.NativeAsset, alice, decimal.NewFromInt(1_000_000))
	bank.Mint(model.NativeAsset, bob, decimal.NewFromInt(1_000_000))
	owner := func() common.Address { return house }
	eng := lottery.New(lottery.Deps{
		Store:      store,
		Funds:      bank,
		NFTs:       bank,
		Gate:       bank,
		Randomness: randomness.NewProvider(nil, 0),
		Treasury:   treasury.New(store, bank),
		Owner:      owner,
	})
	return &fixture{
		t:     t,
		store: store,
		bank:  bank,
		eng:   eng,
		sched: New(store, eng, testPlans(), owner),
		now:   time.Date(2026, 1, 4, 20, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) env(caller common.Address, value decimal.Decimal) model.Env {
	return model.Env{Caller: caller, Value: value, Now: f.now}
}

func (f *fixture) tx(fn func() error) error {
	f.store.Begin()
	f.bank.Begin()
	if err := fn(); err != nil {
		f.bank.Rollback()
		f.store.Rollback()
		return err
	}
	f.bank.Commit()
	f.store.Commit()
	return nil
}

func (f *fixture) init() model.ScheduleState {
	var st model.ScheduleState
	require.NoError(f.t, f.tx(func() (err error) {
		st, err = f.sched.Initialize(context.Background(), f.env(house, decimal.Zero))
		return err
	}))
	return st
}

func (f *fixture) buy(buyer common.Address, drawID, qty uint64, price int64) error {
	return f.tx(func() error {
		_, err := f.eng.BuyTickets(context.Background(), f.env(buyer, decimal.NewFromInt(price*int64(qty))), drawID, qty)
		return err
	})
}

func (f *fixture) weekly() (*Round, error) {
	var r *Round
	err := f.tx(func() (err error) {
		r, err = f.sched.ExecuteWeeklyDraw(context.Background(), f.env(house, decimal.Zero))
		return err
	})
	return r, err
}

func (f *fixture) monthly() (*Round, error) {
	var r *Round
	err := f.tx(func() (err error) {
		r, err = f.sched.ExecuteMonthlyDraw(context.Background(), f.env(house, decimal.Zero))
		return err
	})
	return r, err
}

func TestInitialize_OpensBothOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.weekly()
	require.True(t, errorx.Is(err, errorx.Precondition), "not initialized")

	st := f.init()
	require.NotZero(t, st.WeeklyID)
	require.NotZero(t, st.MonthlyID)

	again := f.init()
	require.Equal(t, st, again)

	w, err := f.store.Draw(st.WeeklyID)
	require.NoError(t, err)
	require.Equal(t, model.KindPlatformWeekly, w.Kind)
	require.Equal(t, house, w.Creator)
	require.True(t, w.EndTime.Equal(f.now.Add(7*24*time.Hour)))
}

func TestWeeklyAndMonthlyRounds(t *testing.T) {
	f := newFixture(t)
	st := f.init()
	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.buy(bob, st.WeeklyID, 2, 1000))
	require.True(t, errorx.Is(f.buy(bob, st.MonthlyID, 1, 0), errorx.Precondition), "monthly takes credits only")

	require.Equal(t, uint64(2), f.eng.Credits(bob).FromWeeklyPurchase)
	m, _ := f.store.Draw(st.MonthlyID)
	require.Equal(t, uint64(2), m.TicketsSold)

	_, err := f.weekly()
	require.True(t, errorx.Is(err, errorx.Precondition), "still running")

	f.now = f.now.Add(7 * 24 * time.Hour)
	round, err := f.weekly()
	require.NoError(t, err)
	require.Equal(t, model.StatusExecuted, round.Settled.Status)
	require.Equal(t, []common.Address{bob}, round.Settled.Winners)
	// net 965 per ticket, 10% of it routed to the jackpot
	require.Equal(t, "1737", round.Settled.WinnerShares[0].String())
	require.Equal(t, "193", f.store.Jackpot().String())
	require.Equal(t, "50", f.store.PlatformFees(model.NativeAsset).String())
	require.Equal(t, model.StatusActive, round.Next.Status)
	require.Equal(t, round.Next.ID, f.store.Schedule().WeeklyID)

	_, err = f.monthly()
	require.True(t, errorx.Is(err, errorx.Precondition))

	f.now = f.now.Add(30 * 24 * time.Hour)
	round, err = f.monthly()
	require.NoError(t, err)
	require.Equal(t, model.StatusExecuted, round.Settled.Status)
	require.Equal(t, []common.Address{bob}, round.Settled.Winners)
	require.Equal(t, "193", round.Settled.WinnerShares[0].String())
	require.True(t, f.store.Jackpot().IsZero())
	require.Zero(t, f.eng.Credits(bob).Total())
	require.Zero(t, round.Next.TicketsSold)
	require.Equal(t, uint64(2), f.store.Schedule().Rounds)
}

func TestMonthly_JackpotRollsOverWithoutEntrants(t *testing.T) {
	f := newFixture(t)
	st := f.init()
	require.NoError(t, f.tx(func() error {
		f.store.AddJackpot(decimal.NewFromInt(500))
		return nil
	}))

	f.now = f.now.Add(31 * 24 * time.Hour)
	round, err := f.monthly()
	require.NoError(t, err)
	require.Equal(t, st.MonthlyID, round.Settled.ID)
	require.Equal(t, model.StatusCancelled, round.Settled.Status)
	require.Equal(t, "500", f.store.Jackpot().String())
	require.NotEqual(t, st.MonthlyID, f.store.Schedule().MonthlyID)
}

func TestMonthly_CreditsCarryIntoNextDraw(t *testing.T) {
	f := newFixture(t)
	st := f.init()

	// alice earns creation credits, so she enters the current monthly draw
	require.NoError(t, f.tx(func() error {
		_, err := f.eng.CreateDraw(context.Background(), f.env(alice, decimal.Zero), lottery.CreateParams{
			Kind:        model.KindUserNative,
			TicketPrice: decimal.NewFromInt(10),
			MaxTickets:  10,
			Duration:    time.Hour,
			Prize:       model.PrizeConfig{Model: model.PrizeParticipantFunded},
		})
		return err
	}))
	parts := f.store.Participants(st.MonthlyID)
	require.Len(t, parts, 1)
	require.Equal(t, alice, parts[0].Account)
	require.Equal(t, uint64(5), parts[0].Tickets)

	f.now = f.now.Add(31 * 24 * time.Hour)
	round, err := f.monthly()
	require.NoError(t, err)
	require.Equal(t, []common.Address{alice}, round.Settled.Winners)
	require.Zero(t, f.eng.Credits(alice).Total())
	require.Empty(t, f.store.Participants(round.Next.ID))
}

func TestWeekly_ForceCancelledDrawIsReopened(t *testing.T) {
	f := newFixture(t)
	st := f.init()
	f.now = f.now.Add(9 * 24 * time.Hour)
	require.NoError(t, f.tx(func() error {
		_, err := f.eng.ForceCancelDraw(context.Background(), f.env(house, decimal.Zero), st.WeeklyID)
		return err
	}))
	round, err := f.weekly()
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, round.Settled.Status)
	require.NotEqual(t, st.WeeklyID, round.Next.ID)
}
