package mutation_test

import (
	"context"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/Guyuepp/clip-board/domain"
)

type postClientMock struct {
	mock.Mock
}

func (m *postClientMock) Fetch(ctx context.Context, params domain.QueryParams) (domain.Page, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.Page), args.Error(1)
}

func (m *postClientMock) FetchNext(ctx context.Context, params domain.QueryParams, cursor string) (domain.Page, error) {
	args := m.Called(ctx, params, cursor)
	return args.Get(0).(domain.Page), args.Error(1)
}

func (m *postClientMock) Mutate(ctx context.Context, id int64, patch domain.PostPatch) (domain.Post, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.Post), args.Error(1)
}

func (m *postClientMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type authHandlerStub struct {
	calls atomic.Int32
}

func (a *authHandlerStub) HandleError(_ context.Context, _ error) bool {
	a.calls.Add(1)
	return true
}
