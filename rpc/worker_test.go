package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkerPair(t *testing.T, endpoint string) (*Dispatcher, *Worker) {
	t.Helper()
	d, err := NewDispatcher(endpoint, DefaultConfig())
	require.NoError(t, err)
	w, err := NewWorker(endpoint, DefaultConfig().HeartbeatInterval)
	require.NoError(t, err)
	return d, w
}

func TestNewWorkerAssignsIdentity(t *testing.T) {
	d, w := newTestWorkerPair(t, "inproc://test-worker-identity")
	defer d.Shutdown()
	defer w.Unbind()

	assert.NotEmpty(t, w.Identity())
}

func TestWorkerUnbindIsIdempotent(t *testing.T) {
	d, w := newTestWorkerPair(t, "inproc://test-worker-double-unbind")
	defer d.Shutdown()

	assert.NotPanics(t, func() {
		assert.NoError(t, w.Unbind())
		assert.NoError(t, w.Unbind())
	})
}

func TestSetRequestHandlerReplacesHandler(t *testing.T) {
	d, w := newTestWorkerPair(t, "inproc://test-worker-replace-handler")
	defer d.Shutdown()
	defer w.Unbind()

	w.SetRequestHandler(func(p []byte) []byte { return []byte("first") })
	w.SetRequestHandler(func(p []byte) []byte { return []byte("second") })

	waitForFleetSize(t, d, 1, 2*time.Second)

	done, err := d.Submit("job-1", []byte("x"))
	require.NoError(t, err)

	select {
	case result := <-done:
		require.NoError(t, result.Err)
		assert.Equal(t, "second", string(result.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestWorkerDefaultHandlerWhenNoneSet(t *testing.T) {
	d, w := newTestWorkerPair(t, "inproc://test-worker-default-handler")
	defer d.Shutdown()
	defer w.Unbind()

	waitForFleetSize(t, d, 1, 2*time.Second)

	done, err := d.Submit("job-1", []byte("x"))
	require.NoError(t, err)

	select {
	case result := <-done:
		require.NoError(t, result.Err)
		assert.Equal(t, "Processed(x)", string(result.Payload))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
	}
}
