package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFutureSettlesOnce(t *testing.T) {
	f := newFuture()
	assert.False(t, f.Settled())
	f.settle("v", nil)
	assert.True(t, f.Settled())
	v, err := f.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFutureWaitHonoursContext(t *testing.T) {
	f := newFuture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.Settled())
}

func TestResolvedFuture(t *testing.T) {
	f := Resolved(3)
	v, err := f.Result()
	assert.NoError(t, err)
	assert.Equal(t, 3, v)

	g := newFuture()
	g.settle(nil, errors.New("x"))
	_, err = g.Wait(context.Background())
	assert.EqualError(t, err, "x")
}
