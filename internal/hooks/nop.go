// Package hooks provides the default no-op lifecycle hooks.
package hooks

import (
	"context"

	"github.com/arloliu/pcgroups/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, []int, []int) error             = (*NopHooks)(nil).OnPartitionsChanged
	_ func(context.Context, types.State, types.State) error = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, error) error                    = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
func NewNop() *types.Hooks {
	h := &NopHooks{}

	return &types.Hooks{
		OnPartitionsChanged: h.OnPartitionsChanged,
		OnStateChanged:      h.OnStateChanged,
		OnError:             h.OnError,
	}
}

// Fill returns a copy of hooks where every nil callback is replaced by a no-op.
func Fill(hooks *types.Hooks) *types.Hooks {
	out := NewNop()
	if hooks == nil {
		return out
	}
	if hooks.OnPartitionsChanged != nil {
		out.OnPartitionsChanged = hooks.OnPartitionsChanged
	}
	if hooks.OnStateChanged != nil {
		out.OnStateChanged = hooks.OnStateChanged
	}
	if hooks.OnError != nil {
		out.OnError = hooks.OnError
	}

	return out
}

// OnPartitionsChanged is a no-op implementation.
func (h *NopHooks) OnPartitionsChanged(_ context.Context, _, _ []int) error {
	return nil
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(_ context.Context, _, _ types.State) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(_ context.Context, _ error) error {
	return nil
}
