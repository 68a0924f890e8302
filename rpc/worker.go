package rpc

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	czmq "github.com/zeromq/goczmq/v4"
)

// Handler maps a request payload to a reply payload. A Handler that panics
// is recovered by the serve loop and reported to the dispatcher as a
// HANDLER_FAULT reply rather than left to time out (§7).
type Handler func(payload []byte) []byte

// Worker implements the connect-register-serve-heartbeat-bye session
// machine: it connects a DEALER socket to a dispatcher, registers with
// HELLO, runs a user-supplied handler against inbound requests, emits idle
// heartbeats, and sends BYE on Unbind.
//
// The serve and heartbeat goroutines share one socket; sockMu serializes
// access so at most one send or receive happens at a time, since the
// underlying ZeroMQ socket object is not safe for concurrent use.
type Worker struct {
	endpoint          string
	identity          string
	heartbeatInterval time.Duration

	socket *czmq.Sock
	poller *czmq.Poller
	sockMu sync.Mutex

	handlerMu sync.RWMutex
	handler   Handler

	activityMu   sync.Mutex
	lastActivity time.Time

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewWorker connects to the dispatcher at endpoint, registers with HELLO,
// and starts the serve and heartbeat goroutines. heartbeatInterval <= 0
// falls back to DefaultHeartbeatInterval.
func NewWorker(endpoint string, heartbeatInterval time.Duration) (*Worker, error) {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}

	identity := newIdentity()

	socket, err := czmq.NewDealer(endpoint)
	if err != nil {
		return nil, fmt.Errorf("rpc: connect worker to %s: %w", endpoint, err)
	}
	if err := socket.SetOption(czmq.SockSetIdentity(identity)); err != nil {
		socket.Destroy()
		return nil, fmt.Errorf("rpc: set worker identity: %w", err)
	}

	poller, err := czmq.NewPoller(socket)
	if err != nil {
		socket.Destroy()
		return nil, fmt.Errorf("rpc: create worker poller: %w", err)
	}

	w := &Worker{
		endpoint:          endpoint,
		identity:          identity,
		heartbeatInterval: heartbeatInterval,
		socket:            socket,
		poller:            poller,
		stopCh:            make(chan struct{}),
	}
	w.markActivity()

	if err := w.sendControl(kindHello); err != nil {
		poller.Destroy()
		socket.Destroy()
		return nil, fmt.Errorf("rpc: send HELLO: %w", err)
	}

	log.WithFields(log.Fields{"endpoint": endpoint, "identity": identity}).Info("worker connected")

	w.wg.Add(2)
	go w.serveLoop()
	go w.heartbeatLoop()

	return w, nil
}

// Identity returns the worker's stable, process-lifetime routing identity.
func (w *Worker) Identity() string {
	return w.identity
}

// SetRequestHandler installs h as the worker's request handler. Safe to
// call at any time, including after requests have already arrived; the
// serve loop reads the handler reference fresh on every request.
func (w *Worker) SetRequestHandler(h Handler) {
	w.handlerMu.Lock()
	w.handler = h
	w.handlerMu.Unlock()
}

// Unbind sends BYE and stops both internal goroutines, waiting for them to
// finish before releasing the socket. Safe to call more than once.
func (w *Worker) Unbind() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.sendControl(kindBye)
		w.markActivity()
		close(w.stopCh)
		w.wg.Wait()

		w.sockMu.Lock()
		w.poller.Destroy()
		w.socket.Destroy()
		w.sockMu.Unlock()

		log.WithFields(log.Fields{"identity": w.identity}).Info("worker disconnected")
	})
	return err
}

func (w *Worker) currentHandler() Handler {
	w.handlerMu.RLock()
	defer w.handlerMu.RUnlock()
	return w.handler
}

func (w *Worker) markActivity() {
	w.activityMu.Lock()
	w.lastActivity = time.Now()
	w.activityMu.Unlock()
}

func (w *Worker) idleFor() time.Duration {
	w.activityMu.Lock()
	defer w.activityMu.Unlock()
	return time.Since(w.lastActivity)
}

func (w *Worker) sendControl(kind byte) error {
	w.sockMu.Lock()
	defer w.sockMu.Unlock()
	return w.socket.SendMessage(encodeControl(kind, w.identity))
}

func (w *Worker) sendReply(correlationID string, payload []byte) error {
	w.sockMu.Lock()
	defer w.sockMu.Unlock()
	return w.socket.SendMessage(encodeReply(correlationID, payload))
}

// serveLoop receives one request group at a time, invokes the handler, and
// replies — refreshing activity after both the receive and the send, which
// is what lets ordinary traffic suppress heartbeats (§4.B).
func (w *Worker) serveLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.sockMu.Lock()
		sock, err := w.poller.Wait(0)
		w.sockMu.Unlock()
		if err != nil {
			log.WithError(err).Error("worker poller wait failed")
			continue
		}
		if sock == nil {
			time.Sleep(workerBackoff)
			continue
		}

		w.sockMu.Lock()
		recv, err := sock.RecvMessage()
		w.sockMu.Unlock()
		if err != nil {
			log.WithError(err).Error("worker recv failed")
			continue
		}

		w.markActivity()

		_, content := popFrame(recv) // empty delimiter
		if len(content) != 2 {
			log.WithField("frames", len(content)).Warn("dropping malformed request group")
			continue
		}
		correlationID := string(content[0])
		payload := content[1]

		result := w.invokeHandler(payload)

		if err := w.sendReply(correlationID, result); err != nil {
			log.WithFields(log.Fields{"correlation_id": correlationID, "error": err}).Error("failed to send reply")
		}
		w.markActivity()
	}
}

// invokeHandler runs the installed handler, falling back to a default that
// returns "Processed(<payload>)" when none is set, and recovering a panic
// into a HANDLER_FAULT reply so the dispatcher's deferred resolves within
// one round-trip.
func (w *Worker) invokeHandler(payload []byte) (result []byte) {
	h := w.currentHandler()

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("request handler panicked")
			result = []byte(fmt.Sprintf("%s%v", handlerFaultMarker, r))
		}
	}()

	if h == nil {
		return []byte("Processed(" + string(payload) + ")")
	}
	return h(payload)
}

// heartbeatLoop wakes roughly every second and emits a PING only when
// ordinary traffic hasn't already proven the session alive within the
// heartbeat interval.
func (w *Worker) heartbeatLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(workerHeartbeatTick)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.idleFor() <= w.heartbeatInterval {
				continue
			}
			if err := w.sendControl(kindPing); err != nil {
				log.WithError(err).Error("worker failed to send heartbeat")
				continue
			}
			w.markActivity()
		}
	}
}
