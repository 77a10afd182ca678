package completion_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/walteh/atncomplete/pkg/completion"
)

type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Suggest(ctx context.Context, path []string) ([]completion.Suggestion, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]completion.Suggestion), args.Error(1)
}
