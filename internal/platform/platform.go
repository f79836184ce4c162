package platform

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"LotteryHub/internal/assets"
	"LotteryHub/internal/errorx"
	"LotteryHub/internal/ledger"
	"LotteryHub/internal/lottery"
	"LotteryHub/internal/model"
	"LotteryHub/internal/randomness"
	"LotteryHub/internal/registry"
	"LotteryHub/internal/scheduler"
	"LotteryHub/internal/statistics"
	"LotteryHub/internal/treasury"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Sink receives the events of every committed operation.
type Sink interface {
	Publish(ctx context.Context, events []model.Event)
}

// Options configure a Platform.
type Options struct {
	Owner     common.Address
	Settings  model.Settings
	Plans     scheduler.Plans
	Clock     func() time.Time
	StateFile string // optional JSON state file, rewritten after every commit
}

// Backends are the external capabilities the engine calls.
type Backends struct {
	Funds      assets.Fungible
	NFTs       assets.NonFungible
	Gate       assets.FollowerGate
	Randomness *randomness.Provider
	// Participants join every operation's transaction, typically the asset backend.
	Participants []ledger.Transactional
	// Savers persist backend state after every commit that emitted events.
	Savers []func() error
}

// DefaultSettings charges 2.5% platform fee, 1% executor reward, 5% creator revenue and a 2%
// jackpot contribution, with the randomness fallback enabled.
func DefaultSettings() model.Settings {
	return model.Settings{
		Fees: model.FeeSchedule{
			PlatformBps: 250,
			ExecutorBps: 100,
			ExecutorCap: decimal.Zero,
			CreatorBps:  500,
			JackpotBps:  200,
		},
		Credits:            model.CreditPolicy{PerWeeklyTicket: 1, PerDrawCreation: 5, PerUserTicket: 1},
		RandomnessFallback: true,
	}
}

type callMarker struct{}

// Platform is the single serial execution context: every operation takes the lock, runs in a
// ledger transaction and is routed through the module registry.
type Platform struct {
	mu        sync.Mutex
	store     *ledger.Store
	registry  *registry.Registry
	txs       []ledger.Transactional
	savers    []func() error
	clock     func() time.Time
	stateFile string

	engine    *lottery.Engine
	scheduler *scheduler.Scheduler
	treasury  *treasury.Treasury
	stats     *statistics.Aggregator

	sinksMu sync.RWMutex
	sinks   []Sink
}

// New wires the components, deploys the built-in modules and maps every selector. When
// opts.StateFile holds a previous state it is restored and the settings are left untouched.
func New(opts Options, b Backends) (*Platform, error) {
	if opts.Owner == (common.Address{}) {
		return nil, fmt.Errorf("platform owner must be set")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if b.Randomness == nil {
		b.Randomness = randomness.NewProvider(nil, 0)
	}

	var store *ledger.Store
	fresh := true
	if opts.StateFile != "" {
		loaded, err := ledger.LoadState(opts.StateFile)
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if loaded != nil {
			store, fresh = loaded, false
			log.Printf("[INFO] ledger state restored from %s", opts.StateFile)
		}
	}
	if store == nil {
		store = ledger.New(model.Settings{})
	}

	p := &Platform{
		store:     store,
		registry:  registry.New(opts.Owner),
		txs:       b.Participants,
		savers:    b.Savers,
		clock:     opts.Clock,
		stateFile: opts.StateFile,
	}
	p.treasury = treasury.New(store, b.Funds)
	p.engine = lottery.New(lottery.Deps{
		Store:      store,
		Funds:      b.Funds,
		NFTs:       b.NFTs,
		Gate:       b.Gate,
		Randomness: b.Randomness,
		Treasury:   p.treasury,
		Owner:      p.registry.Owner,
	})
	p.scheduler = scheduler.New(store, p.engine, opts.Plans, p.registry.Owner)
	p.stats = statistics.NewAggregator(store)

	builtins := []struct {
		name      string
		module    registry.Module
		selectors []registry.Selector
	}{
		{"lifecycle", &LifecycleModule{Engine: p.engine}, LifecycleSelectors},
		{"scheduler", &SchedulerModule{Scheduler: p.scheduler, Owner: p.registry.Owner}, SchedulerSelectors},
		{"admin", &AdminModule{Store: store, Treasury: p.treasury, Owner: p.registry.Owner}, AdminSelectors},
		{"view", &ViewModule{Engine: p.engine, Stats: p.stats, Treasury: p.treasury}, ViewSelectors},
	}
	cuts := make([]registry.Cut, 0, len(builtins))
	for _, m := range builtins {
		addr := ModuleAddress(m.name)
		if err := p.registry.Deploy(opts.Owner, addr, m.module); err != nil {
			return nil, fmt.Errorf("deploy %s: %w", m.name, err)
		}
		cuts = append(cuts, registry.Cut{Module: addr, Action: registry.Add, Selectors: m.selectors})
	}

	var initModule common.Address
	var initData any
	if fresh {
		initModule, initData = ModuleAddress("admin"), opts.Settings
	}
	if err := p.ApplyCut(context.Background(), opts.Owner, cuts, initModule, initData); err != nil {
		return nil, fmt.Errorf("initial cut: %w", err)
	}
	return p, nil
}

// AddSink registers an event consumer.
func (p *Platform) AddSink(s Sink) {
	p.sinksMu.Lock()
	defer p.sinksMu.Unlock()
	p.sinks = append(p.sinks, s)
}

// Registry exposes the module registry for reads and deployments.
func (p *Platform) Registry() *registry.Registry { return p.registry }

// Engine, Store and Treasury are handed to replacement modules built outside this package.
func (p *Platform) Engine() *lottery.Engine { return p.engine }

func (p *Platform) Store() *ledger.Store { return p.store }

func (p *Platform) Treasury() *treasury.Treasury { return p.treasury }

// Now returns the platform clock.
func (p *Platform) Now() time.Time { return p.clock() }

// ApplyCut changes the module mapping atomically with the optional initializer's state changes.
func (p *Platform) ApplyCut(ctx context.Context, caller common.Address, cuts []registry.Cut, initModule common.Address, initData any) error {
	_, err := p.run(ctx, caller, decimal.Zero, func(ctx context.Context, env model.Env) (any, error) {
		if err := p.registry.Apply(ctx, env, cuts, initModule, initData); err != nil {
			return nil, err
		}
		p.store.Emit(model.Event{Type: model.EventModulesCut, Account: caller, Quantity: uint64(len(cuts)), At: env.Now})
		return nil, nil
	})
	return err
}

// Call dispatches one operation by selector. Operations are serial; a nested call made from
// inside a running operation is rejected with ErrReentrant only when it carries the ctx that
// operation handed out. The lock is not reentrant, so a nested call on a fresh context deadlocks.
func (p *Platform) Call(ctx context.Context, caller common.Address, value decimal.Decimal, sel registry.Selector, args any) (any, error) {
	return p.run(ctx, caller, value, func(ctx context.Context, env model.Env) (any, error) {
		return p.registry.Dispatch(ctx, registry.Call{Selector: sel, Env: env, Args: args})
	})
}

func (p *Platform) run(ctx context.Context, caller common.Address, value decimal.Decimal, fn func(context.Context, model.Env) (any, error)) (any, error) {
	if ctx.Value(callMarker{}) != nil {
		return nil, errorx.ErrReentrant
	}
	if value.IsNegative() {
		return nil, errorx.New(errorx.Validation, "negative attached value %s", value)
	}
	inner := context.WithValue(ctx, callMarker{}, true)

	p.mu.Lock()
	env := model.Env{Caller: caller, Value: value, Now: p.clock()}
	p.store.Begin()
	for _, tx := range p.txs {
		tx.Begin()
	}
	out, err := fn(inner, env)
	if err != nil {
		for _, tx := range p.txs {
			tx.Rollback()
		}
		p.store.Rollback()
		p.mu.Unlock()
		return nil, err
	}
	for _, tx := range p.txs {
		tx.Commit()
	}
	events := p.store.Commit()
	if p.stateFile != "" && len(events) > 0 {
		if err := ledger.SaveState(p.stateFile, p.store); err != nil {
			log.Printf("[ERROR] failed to save ledger state: %v", err)
		}
	}
	if len(events) > 0 {
		for _, save := range p.savers {
			if err := save(); err != nil {
				log.Printf("[ERROR] failed to save backend state: %v", err)
			}
		}
	}
	p.mu.Unlock()

	if len(events) > 0 {
		p.sinksMu.RLock()
		sinks := append([]Sink(nil), p.sinks...)
		p.sinksMu.RUnlock()
		for _, s := range sinks {
			s.Publish(ctx, events)
		}
	}
	return out, nil
}

func invoke[T any](ctx context.Context, p *Platform, caller common.Address, value decimal.Decimal, sel registry.Selector, args any) (T, error) {
	var zero T
	out, err := p.Call(ctx, caller, value, sel, args)
	if err != nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T", sel, out)
	}
	return v, nil
}
