package registry

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/puzpuzpuz/xsync"
)

// Selector identifies an operation.
type Selector string

// Action is what a cut does to its selectors.
type Action uint8

const (
	Add Action = iota + 1
	Replace
	Remove
)

func (a Action) String() string {
	switch a {
	case Add:
		return "ADD"
	case Replace:
		return "REPLACE"
	case Remove:
		return "REMOVE"
	}
	return "UNKNOWN"
}

// Cut changes the mapping of a set of selectors.
type Cut struct {
	Module    common.Address
	Action    Action
	Selectors []Selector
}

// Call is one dispatched operation.
type Call struct {
	Selector Selector
	Env      model.Env
	Args     any
}

// Module is deployed code that serves one or more selectors.
type Module interface {
	Handle(ctx context.Context, call Call) (any, error)
}

// Initializer is implemented by modules that can run once alongside a cut.
type Initializer interface {
	Init(ctx context.Context, env model.Env, data any) error
}

var (
	ErrUnmappedSelector = errorx.Error{Code: errorx.Validation, Message: "selector is not mapped"}
	ErrZeroModule       = errorx.Error{Code: errorx.Validation, Message: "module address is zero"}
)

// Registry maps selectors to modules. Only the owner may change the mapping; reads are open.
type Registry struct {
	mu        sync.Mutex
	owner     common.Address
	modules   map[common.Address]Module
	selectors *xsync.MapOf[string, common.Address]
}

func New(owner common.Address) *Registry {
	return &Registry{
		owner:     owner,
		modules:   make(map[common.Address]Module),
		selectors: xsync.NewMapOf[common.Address](),
	}
}

func (r *Registry) Owner() common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// TransferOwnership hands the registry to a new owner.
func (r *Registry) TransferOwnership(caller, newOwner common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return errorx.ErrNotOwner
	}
	if newOwner == (common.Address{}) {
		return ErrZeroModule
	}
	log.Printf("[INFO] registry ownership %s -> %s", r.owner.Hex(), newOwner.Hex())
	r.owner = newOwner
	return nil
}

// Deploy installs module code at an address so cuts can point at it.
func (r *Registry) Deploy(caller, addr common.Address, m Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.owner {
		return errorx.ErrNotOwner
	}
	if addr == (common.Address{}) || m == nil {
		return ErrZeroModule
	}
	if _, dup := r.modules[addr]; dup {
		return errorx.New(errorx.Validation, "module already deployed at %s", addr.Hex())
	}
	r.modules[addr] = m
	return nil
}

// Apply validates every cut against the current mapping, then applies them together. If
// initModule is set it runs after the cut, and the cut is reverted when it fails.
func (r *Registry) Apply(ctx context.Context, env model.Env, cuts []Cut, initModule common.Address, initData any) error {
	r.mu.Lock()
	if env.Caller != r.owner {
		r.mu.Unlock()
		return errorx.ErrNotOwner
	}

	staged := make(map[string]common.Address)
	lookup := func(s Selector) (common.Address, bool) {
		if a, ok := staged[string(s)]; ok {
			return a, a != (common.Address{})
		}
		return r.selectors.Load(string(s))
	}
	for _, c := range cuts {
		if len(c.Selectors) == 0 {
			r.mu.Unlock()
			return errorx.New(errorx.Validation, "%s cut has no selectors", c.Action)
		}
		for _, s := range c.Selectors {
			cur, mapped := lookup(s)
			switch c.Action {
			case Add:
				if c.Module == (common.Address{}) {
					r.mu.Unlock()
					return ErrZeroModule
				}
				if _, ok := r.modules[c.Module]; !ok {
					r.mu.Unlock()
					return errorx.New(errorx.Validation, "no module deployed at %s", c.Module.Hex())
				}
				if mapped {
					r.mu.Unlock()
					return errorx.New(errorx.Validation, "selector %s already mapped to %s", s, cur.Hex())
				}
			case Replace:
				if _, ok := r.modules[c.Module]; !ok {
					r.mu.Unlock()
					return errorx.New(errorx.Validation, "no module deployed at %s", c.Module.Hex())
				}
				if !mapped {
					r.mu.Unlock()
					return errorx.New(errorx.Validation, "selector %s is not mapped", s)
				}
				if cur == c.Module {
					r.mu.Unlock()
					return errorx.New(errorx.Validation, "selector %s already served by %s", s, cur.Hex())
				}
			case Remove:
				if c.Module != (common.Address{}) {
					r.mu.Unlock()
					return errorx.New(errorx.Validation, "remove cut must use the zero module address")
				}
				if !mapped {
					r.mu.Unlock()
					return errorx.New(errorx.Validation, "selector %s is not mapped", s)
				}
			default:
				r.mu.Unlock()
				return errorx.New(errorx.Validation, "unknown cut action %d", c.Action)
			}
			staged[string(s)] = c.Module
		}
	}

	var init Initializer
	if initModule != (common.Address{}) {
		m, ok := r.modules[initModule]
		if !ok {
			r.mu.Unlock()
			return errorx.New(errorx.Validation, "no module deployed at %s", initModule.Hex())
		}
		if init, ok = m.(Initializer); !ok {
			r.mu.Unlock()
			return errorx.New(errorx.Validation, "module %s has no initializer", initModule.Hex())
		}
	}

	previous := make(map[string]common.Address, len(staged))
	for s, addr := range staged {
		if old, ok := r.selectors.Load(s); ok {
			previous[s] = old
		}
		if addr == (common.Address{}) {
			r.selectors.Delete(s)
		} else {
			r.selectors.Store(s, addr)
		}
	}
	r.mu.Unlock()

	if init != nil {
		if err := init.Init(ctx, env, initData); err != nil {
			r.revert(staged, previous)
			return err
		}
	}
	log.Printf("[INFO] registry cut applied: %d cuts, %d selectors", len(cuts), len(staged))
	return nil
}

func (r *Registry) revert(staged, previous map[string]common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range staged {
		if old, ok := previous[s]; ok {
			r.selectors.Store(s, old)
		} else {
			r.selectors.Delete(s)
		}
	}
}

// ModuleOf returns the module serving a selector, or the zero address.
func (r *Registry) ModuleOf(s Selector) common.Address {
	addr, _ := r.selectors.Load(string(s))
	return addr
}

// AllModules lists the addresses serving at least one selector.
func (r *Registry) AllModules() []common.Address {
	seen := make(map[common.Address]bool)
	r.selectors.Range(func(_ string, addr common.Address) bool {
		seen[addr] = true
		return true
	})
	out := make([]common.Address, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// SelectorsOf lists the selectors a module serves.
func (r *Registry) SelectorsOf(module common.Address) []Selector {
	var out []Selector
	r.selectors.Range(func(s string, addr common.Address) bool {
		if addr == module {
			out = append(out, Selector(s))
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch routes a call to the module mapped to its selector.
func (r *Registry) Dispatch(ctx context.Context, call Call) (any, error) {
	addr, ok := r.selectors.Load(string(call.Selector))
	if !ok {
		return nil, fmt.Errorf("%s: %w", call.Selector, ErrUnmappedSelector)
	}
	r.mu.Lock()
	m := r.modules[addr]
	r.mu.Unlock()
	if m == nil {
		return nil, errorx.New(errorx.Validation, "no module deployed at %s", addr.Hex())
	}
	return m.Handle(ctx, call)
}
