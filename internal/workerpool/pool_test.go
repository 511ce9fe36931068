package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// occupy blocks the pool's only worker until release is closed.
func occupy(t *testing.T, p *Pool) chan struct{} {
	t.Helper()
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-release
	}))
	<-started
	return release
}

func TestPool_RunsAllTasks(t *testing.T) {
	p := New(Config{Workers: 3, QueueSize: 10})

	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			n.Add(1)
		}))
	}
	wg.Wait()
	p.Close()

	assert.Equal(t, int32(50), n.Load())
}

func TestPool_CallerRunsWhenSaturated(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 0, Policy: PolicyCallerRuns})
	release := occupy(t, p)

	ran := false
	require.NoError(t, p.Submit(func() { ran = true }))
	// the caller executed it synchronously
	assert.True(t, ran)

	close(release)
	p.Close()
}

func TestPool_AbortWhenSaturated(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 1, Policy: PolicyAbort})
	release := occupy(t, p)

	require.NoError(t, p.Submit(func() {}))
	err := p.Submit(func() { t.Error("rejected task must not run") })
	assert.ErrorIs(t, err, ErrPoolSaturated)

	close(release)
	p.Close()
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := New(Config{Workers: 1})
	p.Close()
	p.Close()

	assert.ErrorIs(t, p.Submit(func() {}), ErrClosed)
}
