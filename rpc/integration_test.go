package rpc

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForFleetSize(t *testing.T, d *Dispatcher, n int, within time.Duration) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if d.ActiveWorkerCount() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, n, d.ActiveWorkerCount())
}

func TestSingleWorkerHandlesRequest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	endpoint := "inproc://test-single-worker"
	d, err := NewDispatcher(endpoint, DefaultConfig())
	require.NoError(t, err)
	defer d.Shutdown()

	w, err := NewWorker(endpoint, DefaultConfig().HeartbeatInterval)
	require.NoError(t, err)
	defer w.Unbind()

	w.SetRequestHandler(func(payload []byte) []byte {
		return []byte(fmt.Sprintf("Handled(%s)", payload))
	})

	waitForFleetSize(t, d, 1, 2*time.Second)

	done, err := d.Submit("job-0", []byte("JobData-0"))
	require.NoError(t, err)

	select {
	case result := <-done:
		assert.NoError(t, result.Err)
		assert.Equal(t, "Handled(JobData-0)", string(result.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestSubmitWithNoWorkersFailsFast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	d, err := NewDispatcher("inproc://test-no-workers", DefaultConfig())
	require.NoError(t, err)
	defer d.Shutdown()

	_, err = d.Submit("job-0", []byte("x"))
	assert.ErrorIs(t, err, ErrNoWorkers)
}

func TestSubmitDuplicateIDRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	endpoint := "inproc://test-duplicate-id"
	d, err := NewDispatcher(endpoint, DefaultConfig())
	require.NoError(t, err)
	defer d.Shutdown()

	w, err := NewWorker(endpoint, DefaultConfig().HeartbeatInterval)
	require.NoError(t, err)
	defer w.Unbind()
	w.SetRequestHandler(func(payload []byte) []byte { return payload })

	waitForFleetSize(t, d, 1, 2*time.Second)

	_, err = d.Submit("job-dup", []byte("first"))
	require.NoError(t, err)

	_, err = d.Submit("job-dup", []byte("second"))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestRequestTimesOutWhenWorkerRepliesLate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	endpoint := "inproc://test-request-timeout"
	cfg := DefaultConfig()
	cfg.RequestTimeout = 200 * time.Millisecond
	d, err := NewDispatcher(endpoint, cfg)
	require.NoError(t, err)
	defer d.Shutdown()

	w, err := NewWorker(endpoint, cfg.HeartbeatInterval)
	require.NoError(t, err)
	defer w.Unbind()
	w.SetRequestHandler(func(payload []byte) []byte {
		time.Sleep(2 * cfg.RequestTimeout)
		return payload
	})

	waitForFleetSize(t, d, 1, 2*time.Second)

	done, err := d.Submit("job-slow", []byte("x"))
	require.NoError(t, err)

	select {
	case result := <-done:
		assert.ErrorIs(t, result.Err, ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timeout result")
	}
}

func TestShutdownDrainsPendingRequests(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	endpoint := "inproc://test-shutdown-drain"
	cfg := DefaultConfig()
	cfg.RequestTimeout = 10 * time.Second
	d, err := NewDispatcher(endpoint, cfg)
	require.NoError(t, err)

	w, err := NewWorker(endpoint, cfg.HeartbeatInterval)
	require.NoError(t, err)
	defer w.Unbind()
	w.SetRequestHandler(func(payload []byte) []byte {
		time.Sleep(5 * time.Second) // outlives the shutdown below
		return payload
	})

	waitForFleetSize(t, d, 1, 2*time.Second)

	done, err := d.Submit("job-drained", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, d.Shutdown())

	select {
	case result := <-done:
		assert.ErrorIs(t, result.Err, ErrShutdown)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not resolve pending request")
	}
}

func TestHandlerPanicResolvesAsHandlerFault(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	endpoint := "inproc://test-handler-fault"
	d, err := NewDispatcher(endpoint, DefaultConfig())
	require.NoError(t, err)
	defer d.Shutdown()

	w, err := NewWorker(endpoint, DefaultConfig().HeartbeatInterval)
	require.NoError(t, err)
	defer w.Unbind()
	w.SetRequestHandler(func(payload []byte) []byte {
		panic("boom")
	})

	waitForFleetSize(t, d, 1, 2*time.Second)

	done, err := d.Submit("job-panic", []byte("x"))
	require.NoError(t, err)

	select {
	case result := <-done:
		require.Error(t, result.Err)
		var structured *Error
		require.ErrorAs(t, result.Err, &structured)
		assert.Equal(t, CodeHandlerFault, structured.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler fault result")
	}
}

func TestRoundRobinAcrossMultipleWorkers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	endpoint := "inproc://test-round-robin"
	d, err := NewDispatcher(endpoint, DefaultConfig())
	require.NoError(t, err)
	defer d.Shutdown()

	seen := make(chan string, 8)
	workers := make([]*Worker, 3)
	for i := range workers {
		identity := fmt.Sprintf("w%d", i)
		w, err := NewWorker(endpoint, DefaultConfig().HeartbeatInterval)
		require.NoError(t, err)
		defer w.Unbind()
		w.SetRequestHandler(func(payload []byte) []byte {
			seen <- identity
			return payload
		})
		workers[i] = w
	}

	waitForFleetSize(t, d, 3, 2*time.Second)

	for i := 0; i < 3; i++ {
		done, err := d.Submit(fmt.Sprintf("job-%d", i), []byte("x"))
		require.NoError(t, err)
		select {
		case result := <-done:
			assert.NoError(t, result.Err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for reply")
		}
	}

	close(seen)
	hit := map[string]bool{}
	for id := range seen {
		hit[id] = true
	}
	assert.Len(t, hit, 3, "every worker should have served exactly one request")
}
