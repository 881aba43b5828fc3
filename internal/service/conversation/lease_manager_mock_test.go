package conversation

import (
	"context"
	"sync"

	"github.com/heartmarshall/inquiry-backend/internal/lease"
)

var _ leaseManager = &leaseManagerMock{}

type leaseManagerMock struct {
	AcquireFunc func(ctx context.Context, key string) (*lease.Lease, error)

	calls struct {
		Acquire []struct{ Key string }
	}
	lockAcquire sync.RWMutex
}

func (mock *leaseManagerMock) Acquire(ctx context.Context, key string) (*lease.Lease, error) {
	if mock.AcquireFunc == nil {
		panic("leaseManagerMock.AcquireFunc: method is nil but leaseManager.Acquire was just called")
	}
	mock.lockAcquire.Lock()
	mock.calls.Acquire = append(mock.calls.Acquire, struct{ Key string }{key})
	mock.lockAcquire.Unlock()
	return mock.AcquireFunc(ctx, key)
}

func (mock *leaseManagerMock) AcquireCalls() []struct{ Key string } {
	mock.lockAcquire.RLock()
	defer mock.lockAcquire.RUnlock()
	return mock.calls.Acquire
}
