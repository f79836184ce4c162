package lottery

import (
	"context"
	"testing"
	"time"

	"LotteryHub/internal/assets"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/model"
	"LotteryHub/internal/randomness"
	"LotteryHub/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	owner = common.HexToAddress("0x0001")
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
	carol = common.HexToAddress("0xca201")
	dave  = common.HexToAddress("0xda7e")
	token = common.HexToAddress("0x70ce")
	punks = common.HexToAddress("0x9c")
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

type harness struct {
	t      *testing.T
	store  *ledger.Store
	bank   *assets.Bank
	engine *Engine
	now    time.Time
	events []model.Event // of the last committed transaction
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := ledger.New(model.Settings{
		Fees:               model.FeeSchedule{PlatformBps: 250, ExecutorBps: 100, CreatorBps: 500, JackpotBps: 200},
		Credits:            model.CreditPolicy{PerWeeklyTicket: 1, PerDrawCreation: 5, PerUserTicket: 1},
		RandomnessFallback: true,
	})
	bank := assets.NewBank()
	h := &harness{
		t:     t,
		store: store,
		bank:  bank,
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.engine = New(Deps{
		Store:      store,
		Funds:      bank,
		NFTs:       bank,
		Gate:       bank,
		Randomness: randomness.NewProvider(nil, 0),
		Treasury:   treasury.New(store, bank),
		Owner:      func() common.Address { return owner },
	})
	for _, a := range []common.Address{alice, bob, carol, dave} {
		bank.Mint(model.NativeAsset, a, dec(1_000_000))
	}
	return h
}

func (h *harness) env(caller common.Address, value decimal.Decimal) model.Env {
	return model.Env{Caller: caller, Value: value, Now: h.now}
}

// tx runs fn the way the platform does: inside one transaction over the store and the bank.
func (h *harness) tx(fn func() error) error {
	h.store.Begin()
	h.bank.Begin()
	if err := fn(); err != nil {
		h.bank.Rollback()
		h.store.Rollback()
		return err
	}
	h.bank.Commit()
	h.events = h.store.Commit()
	return nil
}

func (h *harness) create(creator common.Address, value decimal.Decimal, p CreateParams) (*model.Draw, error) {
	var d *model.Draw
	err := h.tx(func() (err error) {
		d, err = h.engine.CreateDraw(context.Background(), h.env(creator, value), p)
		return err
	})
	return d, err
}

func (h *harness) mustCreate(creator common.Address, value decimal.Decimal, p CreateParams) *model.Draw {
	h.t.Helper()
	d, err := h.create(creator, value, p)
	require.NoError(h.t, err)
	return d
}

func (h *harness) buy(buyer common.Address, drawID, qty uint64) error {
	d, err := h.store.Draw(drawID)
	require.NoError(h.t, err)
	value := decimal.Zero
	if d.Asset == model.NativeAsset {
		value = d.TicketPrice.Mul(dec(int64(qty)))
	}
	return h.buyWith(buyer, value, drawID, qty)
}

func (h *harness) buyWith(buyer common.Address, value decimal.Decimal, drawID, qty uint64) error {
	return h.tx(func() error {
		_, err := h.engine.BuyTickets(context.Background(), h.env(buyer, value), drawID, qty)
		return err
	})
}

func (h *harness) execute(caller common.Address, drawID uint64) (*model.Draw, error) {
	var d *model.Draw
	err := h.tx(func() (err error) {
		d, err = h.engine.ExecuteDraw(context.Background(), h.env(caller, decimal.Zero), drawID)
		return err
	})
	return d, err
}

func (h *harness) cancel(caller common.Address, drawID uint64) error {
	return h.tx(func() error {
		_, err := h.engine.CancelDraw(context.Background(), h.env(caller, decimal.Zero), drawID)
		return err
	})
}

func (h *harness) claim(fn func(ctx context.Context, env model.Env) (*model.Claim, error), caller common.Address) (*model.Claim, error) {
	var c *model.Claim
	err := h.tx(func() (err error) {
		c, err = fn(context.Background(), h.env(caller, decimal.Zero))
		return err
	})
	return c, err
}

func (h *harness) eventsOf(typ model.EventType) []model.Event {
	var out []model.Event
	for _, e := range h.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) pastEnd(d *model.Draw) {
	h.now = d.EndTime.Add(time.Second)
}

// owed is everything the ledger still owes out of custody for one asset.
func (h *harness) owed(asset common.Address, accounts ...common.Address) decimal.Decimal {
	sum := h.store.PlatformFees(asset)
	if asset == model.NativeAsset {
		sum = sum.Add(h.store.Jackpot())
	}
	for _, a := range accounts {
		for _, p := range h.store.PendingOf(a) {
			if p.Asset == asset {
				sum = sum.Add(p.Amount)
			}
		}
	}
	return sum
}

func nativeParams(price int64, maxTickets, minParticipants uint64) CreateParams {
	return CreateParams{
		Kind:            model.KindUserNative,
		TicketPrice:     dec(price),
		MaxTickets:      maxTickets,
		MinParticipants: minParticipants,
		Duration:        time.Hour,
		GracePeriod:     time.Hour,
		Prize:           model.PrizeConfig{Model: model.PrizeParticipantFunded},
	}
}
