package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCanceller struct {
	calls     int
	olderThan time.Duration
	err       error
}

func (f *fakeCanceller) CancelStalePending(_ context.Context, olderThan time.Duration) (int, error) {
	f.calls++
	f.olderThan = olderThan
	return 3, f.err
}

func TestCancelPendingOrders(t *testing.T) {
	f := &fakeCanceller{}
	s := NewScheduler(f)

	s.CancelPendingOrders()
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, 48*time.Hour, f.olderThan)

	f.err = errors.New("mongo down")
	assert.NotPanics(t, s.CancelPendingOrders)
	assert.Equal(t, 2, f.calls)
}

func TestStart_RejectsBadExpression(t *testing.T) {
	s := NewScheduler(&fakeCanceller{})
	assert.Error(t, s.Start("pas une expression"))
}

func TestStart_Stop(t *testing.T) {
	s := NewScheduler(&fakeCanceller{})
	require.NoError(t, s.Start("0 0 * * *"))
	s.Stop()
}
