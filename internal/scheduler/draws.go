package scheduler

import (
	"context"
	"log"
	"time"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/lottery"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Plan is the template of a recurring platform draw.
type Plan struct {
	TicketPrice     decimal.Decimal
	MaxTickets      uint64
	MinParticipants uint64
	Duration        time.Duration
	GracePeriod     time.Duration
	Prize           model.PrizeConfig
	// JackpotShareBps of a weekly net pool goes to the jackpot.
	JackpotShareBps uint32
}

// Plans holds both recurring templates.
type Plans struct {
	Weekly  Plan
	Monthly Plan
}

// DefaultPlans returns a weekly draw of 0.01 native units per ticket with 10% of its pool
// feeding the jackpot, and a monthly draw entered with credits only.
func DefaultPlans() Plans {
	return Plans{
		Weekly: Plan{
			TicketPrice:     decimal.New(1, 16),
			MaxTickets:      100000,
			MinParticipants: 1,
			Duration:        7 * 24 * time.Hour,
			GracePeriod:     24 * time.Hour,
			Prize:           model.PrizeConfig{Model: model.PrizeParticipantFunded},
			JackpotShareBps: 1000,
		},
		Monthly: Plan{
			TicketPrice:     decimal.Zero,
			MaxTickets:      1 << 40,
			MinParticipants: 1,
			Duration:        30 * 24 * time.Hour,
			GracePeriod:     24 * time.Hour,
			Prize:           model.PrizeConfig{Model: model.PrizeCreatorFunded},
		},
	}
}

// Round is the outcome of settling one platform draw.
type Round struct {
	Settled *model.Draw `json:"settled"`
	Next    *model.Draw `json:"next"`
}

// Scheduler keeps exactly one weekly and one monthly draw open.
type Scheduler struct {
	store    *ledger.Store
	engine   *lottery.Engine
	plans    Plans
	platform func() common.Address
}

// New creates a scheduler. platform returns the account platform draws are created by.
func New(store *ledger.Store, engine *lottery.Engine, plans Plans, platform func() common.Address) *Scheduler {
	return &Scheduler{store: store, engine: engine, plans: plans, platform: platform}
}

// Initialize opens the weekly and monthly draws if they are not open yet.
func (s *Scheduler) Initialize(_ context.Context, env model.Env) (model.ScheduleState, error) {
	st := s.store.Schedule()
	if st.WeeklyID == 0 {
		d, err := s.open(env, model.KindPlatformWeekly)
		if err != nil {
			return st, err
		}
		st.WeeklyID = d.ID
	}
	if st.MonthlyID == 0 {
		d, err := s.open(env, model.KindPlatformMonthly)
		if err != nil {
			return st, err
		}
		st.MonthlyID = d.ID
		s.store.SetSchedule(st)
		s.engine.CarryCredits(env)
	}
	s.store.SetSchedule(st)
	return st, nil
}

// ExecuteWeeklyDraw settles the weekly draw once it has ended and opens the next one. A viable
// draw is executed with its jackpot share routed; an unviable one is cancelled for refunds.
func (s *Scheduler) ExecuteWeeklyDraw(ctx context.Context, env model.Env) (*Round, error) {
	st := s.store.Schedule()
	if st.WeeklyID == 0 {
		return nil, errorx.New(errorx.Precondition, "scheduler is not initialized")
	}
	settled, err := s.settle(ctx, env, st.WeeklyID, lottery.ExecuteOptions{JackpotShareBps: s.plans.Weekly.JackpotShareBps})
	if err != nil {
		return nil, err
	}
	next, err := s.open(env, model.KindPlatformWeekly)
	if err != nil {
		return nil, err
	}
	st.WeeklyID = next.ID
	st.Rounds++
	s.store.SetSchedule(st)
	return &Round{Settled: settled, Next: next}, nil
}

// ExecuteMonthlyDraw settles the monthly draw once it has ended. With entrants the whole jackpot
// becomes the prize and every account's credits are consumed; without entrants the jackpot
// rolls over. The next monthly draw opens either way.
func (s *Scheduler) ExecuteMonthlyDraw(ctx context.Context, env model.Env) (*Round, error) {
	st := s.store.Schedule()
	if st.MonthlyID == 0 {
		return nil, errorx.New(errorx.Precondition, "scheduler is not initialized")
	}
	settled, err := s.settle(ctx, env, st.MonthlyID, lottery.ExecuteOptions{FundFromJackpot: true})
	if err != nil {
		return nil, err
	}
	if settled.Status == model.StatusExecuted {
		n := s.store.ConsumeCredits()
		s.store.Emit(model.Event{Type: model.EventCreditsConsumed, DrawID: settled.ID, Quantity: uint64(n), At: env.Now})
	}
	next, err := s.open(env, model.KindPlatformMonthly)
	if err != nil {
		return nil, err
	}
	st.MonthlyID = next.ID
	st.Rounds++
	s.store.SetSchedule(st)
	s.engine.CarryCredits(env)
	if next, err = s.store.Draw(next.ID); err != nil {
		return nil, err
	}
	return &Round{Settled: settled, Next: next}, nil
}

func (s *Scheduler) settle(ctx context.Context, env model.Env, id uint64, opts lottery.ExecuteOptions) (*model.Draw, error) {
	d, err := s.store.Draw(id)
	if err != nil {
		return nil, err
	}
	if d.Status.Final() {
		// force-cancelled by the owner; just reopen
		return d, nil
	}
	if env.Now.Before(d.EndTime) {
		return nil, errorx.New(errorx.Precondition, "%s draw %d runs until %s", d.Kind, d.ID, d.EndTime.Format(time.RFC3339))
	}
	if d.Viable() {
		return s.engine.ExecutePlatform(ctx, env, id, opts)
	}
	log.Printf("[INFO] %s draw %d unviable, rolling over", d.Kind, d.ID)
	return s.engine.CancelPlatform(env, id)
}

func (s *Scheduler) open(env model.Env, kind model.DrawKind) (*model.Draw, error) {
	plan := s.plans.Weekly
	if kind == model.KindPlatformMonthly {
		plan = s.plans.Monthly
	}
	return s.engine.OpenPlatformDraw(env, &model.Draw{
		Kind:            kind,
		Creator:         s.platform(),
		Asset:           model.NativeAsset,
		TicketPrice:     plan.TicketPrice,
		MaxTickets:      plan.MaxTickets,
		MinParticipants: plan.MinParticipants,
		StartTime:       env.Now,
		EndTime:         env.Now.Add(plan.Duration),
		GracePeriod:     plan.GracePeriod,
		Prize:           plan.Prize,
	})
}
