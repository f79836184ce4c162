package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"LotteryHub/internal/errorx"
	"LotteryHub/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x0a")
	stranger = common.HexToAddress("0x0b")
	modA     = common.HexToAddress("0xa0")
	modB     = common.HexToAddress("0xb0")
)

type echo struct {
	name    string
	initErr error
	inits   int
}

func (e *echo) Handle(_ context.Context, call Call) (any, error) {
	return e.name + ":" + string(call.Selector), nil
}

func (e *echo) Init(_ context.Context, _ model.Env, _ any) error {
	e.inits++
	return e.initErr
}

type plain struct{}

func (plain) Handle(context.Context, Call) (any, error) { return nil, nil }

func setup(t *testing.T) (*Registry, *echo, *echo) {
	t.Helper()
	r := New(owner)
	a, b := &echo{name: "a"}, &echo{name: "b"}
	require.NoError(t, r.Deploy(owner, modA, a))
	require.NoError(t, r.Deploy(owner, modB, b))
	return r, a, b
}

func apply(r *Registry, caller common.Address, cuts ...Cut) error {
	return r.Apply(context.Background(), model.Env{Caller: caller}, cuts, common.Address{}, nil)
}

func dispatch(t *testing.T, r *Registry, s Selector) string {
	t.Helper()
	out, err := r.Dispatch(context.Background(), Call{Selector: s})
	require.NoError(t, err)
	return out.(string)
}

func TestApply_AddReplaceRemove(t *testing.T) {
	r, _, _ := setup(t)
	require.NoError(t, apply(r, owner, Cut{Module: modA, Action: Add, Selectors: []Selector{"foo", "bar"}}))
	require.Equal(t, "a:foo", dispatch(t, r, "foo"))

	require.NoError(t, apply(r, owner, Cut{Module: modB, Action: Replace, Selectors: []Selector{"foo"}}))
	require.Equal(t, "b:foo", dispatch(t, r, "foo"))
	require.Equal(t, "a:bar", dispatch(t, r, "bar"))
	require.Equal(t, []Selector{"foo"}, r.SelectorsOf(modB))
	require.Equal(t, []common.Address{modA, modB}, r.AllModules())

	require.NoError(t, apply(r, owner, Cut{Action: Remove, Selectors: []Selector{"bar"}}))
	_, err := r.Dispatch(context.Background(), Call{Selector: "bar"})
	require.True(t, errors.Is(err, ErrUnmappedSelector))
	require.Equal(t, common.Address{}, r.ModuleOf("bar"))
}

func TestApply_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		caller common.Address
		cuts   []Cut
		code   errorx.Code
	}{
		{"not owner", stranger, []Cut{{Module: modA, Action: Add, Selectors: []Selector{"x"}}}, errorx.Unauthorized},
		{"add mapped", owner, []Cut{{Module: modB, Action: Add, Selectors: []Selector{"foo"}}}, errorx.Validation},
		{"add zero module", owner, []Cut{{Action: Add, Selectors: []Selector{"x"}}}, errorx.Validation},
		{"add undeployed", owner, []Cut{{Module: common.HexToAddress("0xdead"), Action: Add, Selectors: []Selector{"x"}}}, errorx.Validation},
		{"replace unmapped", owner, []Cut{{Module: modB, Action: Replace, Selectors: []Selector{"x"}}}, errorx.Validation},
		{"replace same module", owner, []Cut{{Module: modA, Action: Replace, Selectors: []Selector{"foo"}}}, errorx.Validation},
		{"remove unmapped", owner, []Cut{{Action: Remove, Selectors: []Selector{"x"}}}, errorx.Validation},
		{"remove with module", owner, []Cut{{Module: modA, Action: Remove, Selectors: []Selector{"foo"}}}, errorx.Validation},
		{"empty cut", owner, []Cut{{Module: modA, Action: Add}}, errorx.Validation},
		{"batch with one bad cut", owner, []Cut{
			{Module: modB, Action: Add, Selectors: []Selector{"new"}},
			{Action: Remove, Selectors: []Selector{"missing"}},
		}, errorx.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := setup(t)
			require.NoError(t, apply(r, owner, Cut{Module: modA, Action: Add, Selectors: []Selector{"foo"}}))

			err := apply(r, tt.caller, tt.cuts...)
			require.Equal(t, tt.code, errorx.CodeOf(err))
			require.Equal(t, modA, r.ModuleOf("foo"))
			require.Equal(t, common.Address{}, r.ModuleOf("new"), "a rejected batch applies nothing")
		})
	}
}

func TestApply_InitializerFailureReverts(t *testing.T) {
	r, a, b := setup(t)
	require.NoError(t, apply(r, owner, Cut{Module: modA, Action: Add, Selectors: []Selector{"foo"}}))

	b.initErr = errorx.New(errorx.Validation, "bad init")
	err := r.Apply(context.Background(), model.Env{Caller: owner},
		[]Cut{{Module: modB, Action: Replace, Selectors: []Selector{"foo"}}, {Module: modB, Action: Add, Selectors: []Selector{"baz"}}},
		modB, "data")
	require.Error(t, err)
	require.Equal(t, 1, b.inits)
	require.Equal(t, modA, r.ModuleOf("foo"))
	require.Equal(t, common.Address{}, r.ModuleOf("baz"))

	require.NoError(t, r.Apply(context.Background(), model.Env{Caller: owner},
		[]Cut{{Module: modB, Action: Add, Selectors: []Selector{"baz"}}}, modA, nil))
	require.Equal(t, 1, a.inits)
	require.Equal(t, modB, r.ModuleOf("baz"))
}

func TestApply_InitModuleWithoutInitializer(t *testing.T) {
	r, _, _ := setup(t)
	p := common.HexToAddress("0xc0")
	require.NoError(t, r.Deploy(owner, p, plain{}))
	err := r.Apply(context.Background(), model.Env{Caller: owner},
		[]Cut{{Module: modA, Action: Add, Selectors: []Selector{"foo"}}}, p, nil)
	require.True(t, errorx.Is(err, errorx.Validation))
	require.Equal(t, common.Address{}, r.ModuleOf("foo"))
}

func TestDeployAndOwnership(t *testing.T) {
	r, _, _ := setup(t)
	require.True(t, errorx.Is(r.Deploy(owner, modA, &echo{}), errorx.Validation), "duplicate deploy")
	require.True(t, errorx.Is(r.Deploy(stranger, common.HexToAddress("0xc1"), &echo{}), errorx.Unauthorized))
	require.True(t, errorx.Is(r.Deploy(owner, common.Address{}, &echo{}), errorx.Validation))

	require.ErrorIs(t, r.TransferOwnership(stranger, stranger), errorx.ErrNotOwner)
	require.NoError(t, r.TransferOwnership(owner, stranger))
	require.Equal(t, stranger, r.Owner())
	require.Error(t, apply(r, owner, Cut{Module: modA, Action: Add, Selectors: []Selector{"foo"}}))
	require.NoError(t, apply(r, stranger, Cut{Module: modA, Action: Add, Selectors: []Selector{"foo"}}))
}

func TestAllModules_ByteOrder(t *testing.T) {
	r := New(owner)
	mods := []common.Address{
		common.HexToAddress("0xf0"),
		common.HexToAddress("0x0b0"),
		common.HexToAddress("0xa0"),
		common.HexToAddress("0x1a"),
	}
	for i, m := range mods {
		require.NoError(t, r.Deploy(owner, m, plain{}))
		require.NoError(t, apply(r, owner, Cut{Module: m, Action: Add, Selectors: []Selector{Selector(fmt.Sprintf("op%d", i))}}))
	}
	got := r.AllModules()
	require.Len(t, got, len(mods))
	for i := 1; i < len(got); i++ {
		if bytes.Compare(got[i-1][:], got[i][:]) >= 0 {
			t.Errorf("modules out of byte order: %x before %x", got[i-1], got[i])
		}
	}
}
