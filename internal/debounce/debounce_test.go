package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestScheduleCoalesces(t *testing.T) {
	d := New(30 * time.Millisecond)
	var calls, last int32
	done := make(chan struct{}, 10)

	for i := int32(1); i <= 5; i++ {
		i := i
		d.Schedule(func() {
			atomic.AddInt32(&calls, 1)
			atomic.StoreInt32(&last, i)
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never ran")
	}
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, atomic.LoadInt32(&calls), int32(1))
	assert.Equal(t, atomic.LoadInt32(&last), int32(5))
	assert.Assert(t, !d.Pending())
}

func TestZeroDelayRunsInline(t *testing.T) {
	d := New(0)
	ran := false
	d.Schedule(func() { ran = true })
	assert.Assert(t, ran)
}

func TestFlush(t *testing.T) {
	d := New(time.Hour)
	ran := 0
	d.Schedule(func() { ran++ })
	assert.Assert(t, d.Pending())

	d.Flush()
	assert.Equal(t, ran, 1)
	d.Flush()
	assert.Equal(t, ran, 1)
}

func TestStop(t *testing.T) {
	d := New(10 * time.Millisecond)
	var calls int32
	d.Schedule(func() { atomic.AddInt32(&calls, 1) })
	d.Stop()
	d.Schedule(func() { atomic.AddInt32(&calls, 1) })

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, atomic.LoadInt32(&calls), int32(0))
}

func TestCancel(t *testing.T) {
	d := New(10 * time.Millisecond)
	var calls int32
	d.Schedule(func() { atomic.AddInt32(&calls, 1) })
	d.Cancel()
	assert.Assert(t, !d.Pending())

	done := make(chan struct{})
	d.Schedule(func() { atomic.AddInt32(&calls, 1); close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("call after Cancel never ran")
	}
	assert.Equal(t, atomic.LoadInt32(&calls), int32(1))
}
