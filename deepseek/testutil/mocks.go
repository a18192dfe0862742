// Package testutil provides shared mocks for client tests.
package testutil

import (
	"context"
	"sync"

	"github.com/miyifan/deepchat/model"
)

// MockInvoker records tool invocations and returns canned results.
type MockInvoker struct {
	mu sync.Mutex

	// InvokeFunc, when set, handles the call. Otherwise Result/Err are
	// returned as-is.
	InvokeFunc func(ctx context.Context, def model.FunctionDefinition, args interface{}) (interface{}, error)
	Result     interface{}
	Err        error

	Calls []MockInvocation
}

// MockInvocation is one recorded Invoke call.
type MockInvocation struct {
	Def  model.FunctionDefinition
	Args interface{}
}

func (m *MockInvoker) Invoke(ctx context.Context, def model.FunctionDefinition, args interface{}) (interface{}, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockInvocation{Def: def, Args: args})
	m.mu.Unlock()

	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, def, args)
	}
	return m.Result, m.Err
}

// CallCount returns how many times Invoke ran.
func (m *MockInvoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
