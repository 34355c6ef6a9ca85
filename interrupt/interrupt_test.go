package interrupt_test

import (
	"context"
	"testing"

	"github.com/flowrt/flowrt/interrupt"
	"github.com/stretchr/testify/assert"
)

func TestNonInterruptibleNeverPolls(t *testing.T) {
	s := interrupt.NonInterruptible()
	assert.False(t, s.Interruptible())
	assert.False(t, s.Poll())
	assert.Nil(t, s.Done())
}

func TestFromContextPollsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := interrupt.FromContext(ctx)
	assert.True(t, s.Interruptible())
	assert.False(t, s.Poll())

	cancel()
	assert.True(t, s.Poll())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done channel should be closed after cancel")
	}
}

func TestReborrowSharesSameSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := interrupt.FromContext(ctx)
	r := s.Reborrow()

	cancel()
	assert.True(t, s.Poll())
	assert.True(t, r.Poll())
}
