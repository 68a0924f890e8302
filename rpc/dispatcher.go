package rpc

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	czmq "github.com/zeromq/goczmq/v4"
)

// Dispatcher is the single-threaded fleet/request state machine described
// in the protocol specification: it binds a ROUTER socket, fans requests
// out round-robin across registered workers, and resolves each request's
// deferred handle on reply, timeout, or shutdown.
//
// The dispatcher loop owns fleet and pending exclusively; external callers
// reach them only through the thread-safe methods below (Submit,
// ActiveWorkerCount, Shutdown), guarded by mu.
type Dispatcher struct {
	endpoint string
	cfg      Config
	socket   *czmq.Sock
	poller   *czmq.Poller

	mu      sync.Mutex
	fleet   *fleet
	pending *pendingTable
	closed  bool

	// EventChannel carries structured observability events (worker
	// admitted/evicted, request timed out, reply received, malformed
	// frame dropped). Sends never block the dispatcher loop.
	EventChannel chan Event

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDispatcher binds a ROUTER socket at endpoint and starts the
// dispatcher loop in a background goroutine.
func NewDispatcher(endpoint string, cfg Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rpc: invalid config: %w", err)
	}

	socket, err := czmq.NewRouter(endpoint)
	if err != nil {
		log.WithFields(log.Fields{"endpoint": endpoint, "error": err}).Error("dispatcher failed to bind")
		return nil, fmt.Errorf("rpc: bind %s: %w", endpoint, err)
	}
	socket.SetOption(czmq.SockSetRcvhwm(cfg.SocketHWM))

	poller, err := czmq.NewPoller(socket)
	if err != nil {
		socket.Destroy()
		return nil, fmt.Errorf("rpc: create poller: %w", err)
	}

	d := &Dispatcher{
		endpoint:     endpoint,
		cfg:          cfg,
		socket:       socket,
		poller:       poller,
		fleet:        newFleet(),
		pending:      newPendingTable(),
		EventChannel: make(chan Event, cfg.EventBufferSize),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}

	log.WithFields(log.Fields{"endpoint": endpoint}).Info("dispatcher bound")
	emit(d.EventChannel, newEvent(EventBound, "dispatcher bound to "+endpoint, nil))

	go d.run()

	return d, nil
}

// Submit dispatches payload to the next worker in round-robin order under
// correlationID, returning a channel that resolves with the worker's reply
// or a failure. Fails synchronously with ErrNoWorkers if the fleet is
// empty, or ErrDuplicateID if correlationID is already pending.
func (d *Dispatcher) Submit(correlationID string, payload []byte) (<-chan Result, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}

	identity, err := d.fleet.pickNext()
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}

	now := time.Now()
	req := &pendingRequest{
		correlationID: correlationID,
		recipient:     identity,
		submittedAt:   now,
		deadlineAt:    now.Add(d.cfg.RequestTimeout),
		done:          make(chan Result, 1),
	}
	if err := d.pending.insert(req); err != nil {
		d.mu.Unlock()
		return nil, err
	}

	// Socket I/O under the lock is the sole sanctioned exception (§5): the
	// router socket is otherwise touched only by the dispatcher loop.
	sendErr := d.socket.SendMessage(encodeRequest(identity, correlationID, payload))
	if sendErr != nil {
		d.pending.discard(correlationID)
		d.mu.Unlock()
		log.WithFields(log.Fields{"worker": identity, "error": sendErr}).Error("failed to dispatch request")
		return nil, fmt.Errorf("rpc: dispatch request: %w", sendErr)
	}
	d.mu.Unlock()

	return req.done, nil
}

// ActiveWorkerCount returns a snapshot of the live fleet size.
func (d *Dispatcher) ActiveWorkerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fleet.size()
}

// Shutdown stops the dispatcher loop, joins it, then fails every
// outstanding request with ErrShutdown. Safe to call more than once.
func (d *Dispatcher) Shutdown() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	close(d.stopCh)
	<-d.doneCh

	d.mu.Lock()
	d.pending.drain()
	d.mu.Unlock()

	err := d.socket.Unbind(d.endpoint)
	d.poller.Destroy()
	d.socket.Destroy()
	close(d.EventChannel)

	log.WithFields(log.Fields{"endpoint": d.endpoint}).Info("dispatcher shut down")

	return err
}

// run is the single I/O goroutine: poll, classify and apply one inbound
// group, then sweep deadlines and stale workers.
func (d *Dispatcher) run() {
	defer close(d.doneCh)

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		sock, err := d.poller.Wait(int(pollTimeout / time.Millisecond))
		if err != nil {
			log.WithError(err).Error("dispatcher poller wait failed")
		} else if sock != nil {
			recv, err := sock.RecvMessage()
			if err != nil {
				log.WithError(err).Error("dispatcher recv failed")
			} else {
				d.handleGroup(recv)
			}
		}

		now := time.Now()
		d.mu.Lock()
		expired := d.pending.sweepDeadlines(now)
		evicted := d.fleet.sweep(now, d.cfg.InactivityCutoff)
		d.mu.Unlock()

		for _, id := range expired {
			emit(d.EventChannel, newEvent(EventRequestTimedOut, "request timed out", map[string]string{"correlation_id": id}))
		}
		for _, id := range evicted {
			emit(d.EventChannel, newEvent(EventWorkerEvicted, "worker evicted for inactivity", map[string]string{"worker": id}))
		}
	}
}

// handleGroup applies one inbound frame group: control packets update the
// fleet, replies complete a pending request. Malformed groups are logged
// and dropped; the socket is never torn down because of one.
func (d *Dispatcher) handleGroup(recv [][]byte) {
	sender, content := popFrame(recv)
	_, content = popFrame(content) // empty delimiter

	group, err := classifyInbound(content)
	if err != nil {
		log.WithError(err).Warn("dropping malformed frame group")
		emit(d.EventChannel, newEvent(EventMalformedDropped, err.Error(), nil))
		return
	}

	identity := string(sender)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if group.control != nil {
		switch group.control.kind {
		case kindHello:
			wasNew := !d.fleet.contains(identity)
			d.fleet.admit(identity, now)
			if wasNew {
				emit(d.EventChannel, newEvent(EventWorkerAdmitted, "worker registered", map[string]string{"worker": identity}))
			}
		case kindPing:
			d.fleet.touch(identity, now)
		case kindBye:
			d.fleet.remove(identity)
			failed := d.pending.failRecipient(identity)
			emit(d.EventChannel, newEvent(EventWorkerEvicted, "worker disconnected", map[string]string{"worker": identity}))
			for _, id := range failed {
				emit(d.EventChannel, newEvent(EventRequestTimedOut, "in-flight request abandoned by BYE", map[string]string{"correlation_id": id, "worker": identity}))
			}
		}
		return
	}

	// Reply: proof of life for the sender even if it never sent HELLO.
	d.fleet.touch(identity, now)

	if detail, isFault := faultDetail(group.payload); isFault {
		if d.pending.completeFault(group.correlationID, detail) {
			emit(d.EventChannel, newEvent(EventReplyReceived, "handler fault reported", map[string]string{"correlation_id": group.correlationID, "worker": identity}))
		}
		return
	}

	if d.pending.complete(group.correlationID, group.payload) {
		emit(d.EventChannel, newEvent(EventReplyReceived, "reply received", map[string]string{"correlation_id": group.correlationID, "worker": identity}))
	}
}
