package rpc

import "time"

// Result is delivered on a request's completion channel exactly once:
// either Payload is set and Err is nil, or Err identifies the failure kind:
// an *Error wrapping ErrTimeout or ErrShutdown, or an *Error with code
// CodeHandlerFault when the worker's handler panicked.
type Result struct {
	Payload []byte
	Err     error
}

// pendingRequest is one in-flight request awaiting a reply.
type pendingRequest struct {
	correlationID string
	recipient     string // worker identity the request was dispatched to
	submittedAt   time.Time
	deadlineAt    time.Time
	done          chan Result
}

// pendingTable maps correlation id to in-flight request state. Not safe for
// concurrent use on its own; the dispatcher guards it with its lock.
type pendingTable struct {
	byID map[string]*pendingRequest
}

func newPendingTable() *pendingTable {
	return &pendingTable{byID: make(map[string]*pendingRequest)}
}

// insert adds req, rejecting on correlation id collision (invariant P1).
func (t *pendingTable) insert(req *pendingRequest) error {
	if _, exists := t.byID[req.correlationID]; exists {
		return ErrDuplicateID
	}
	t.byID[req.correlationID] = req
	return nil
}

// complete fulfils the completion channel for id with payload and removes
// the entry. Returns false if id is unknown (already timed out, or
// spoofed) — the caller logs and drops in that case.
func (t *pendingTable) complete(id string, payload []byte) bool {
	req, ok := t.byID[id]
	if !ok {
		return false
	}
	delete(t.byID, id)
	req.done <- Result{Payload: payload}
	close(req.done)
	return true
}

// completeFault fulfils the completion channel for id with a HANDLER_FAULT
// error carrying the worker's fault detail, used when a reply payload
// carries the handler-panic marker. Returns false if id is unknown.
func (t *pendingTable) completeFault(id, detail string) bool {
	req, ok := t.byID[id]
	if !ok {
		return false
	}
	delete(t.byID, id)
	err := newError(CodeHandlerFault, "worker handler panicked", nil).
		WithContext("correlation_id", id).WithContext("worker", req.recipient).WithContext("detail", detail)
	req.done <- Result{Err: err}
	close(req.done)
	return true
}

// failRecipient fails every pending request whose recipient is identity
// with ErrTimeout, used when a BYE arrives for that worker (design note:
// recipient binding for BYE-on-pending). Returns the failed correlation ids.
func (t *pendingTable) failRecipient(identity string) []string {
	var failed []string
	for id, req := range t.byID {
		if req.recipient == identity {
			delete(t.byID, id)
			err := newError(CodeTimeout, "worker disconnected before replying", ErrTimeout).
				WithContext("correlation_id", id).WithContext("worker", identity)
			req.done <- Result{Err: err}
			close(req.done)
			failed = append(failed, id)
		}
	}
	return failed
}

// sweepDeadlines fails every request whose deadline has elapsed with
// ErrTimeout and removes it. Returns the expired correlation ids.
func (t *pendingTable) sweepDeadlines(now time.Time) []string {
	var expired []string
	for id, req := range t.byID {
		if !req.deadlineAt.After(now) {
			delete(t.byID, id)
			err := newError(CodeTimeout, "deadline elapsed before reply", ErrTimeout).
				WithContext("correlation_id", id).WithContext("worker", req.recipient)
			req.done <- Result{Err: err}
			close(req.done)
			expired = append(expired, id)
		}
	}
	return expired
}

// drain fulfils every remaining sink with ErrShutdown and empties the table.
func (t *pendingTable) drain() {
	for id, req := range t.byID {
		delete(t.byID, id)
		err := newError(CodeShutdown, "dispatcher shut down with request still pending", ErrShutdown).
			WithContext("correlation_id", id)
		req.done <- Result{Err: err}
		close(req.done)
	}
}

func (t *pendingTable) size() int {
	return len(t.byID)
}

// discard removes id without fulfilling its completion channel, used to
// roll back an insert when the dispatcher's subsequent socket send fails.
func (t *pendingTable) discard(id string) {
	if req, ok := t.byID[id]; ok {
		delete(t.byID, id)
		close(req.done)
	}
}
