package rpc

import "fmt"

// Frame codec: the wire shape is a sequence of length-prefixed frames
// routed by goczmq's ROUTER/DEALER sockets. The dispatcher disambiguates
// control traffic from replies using a one-byte kind code (see const.go),
// which is decidable in O(1) per inbound group regardless of what a
// correlation id happens to contain.

// controlPacket is a small tagged worker->dispatcher record used for
// lifecycle and liveness: HELLO, PING, or BYE.
type controlPacket struct {
	kind     byte
	identity string
}

// inboundGroup is the result of classifying one inbound frame group at the
// dispatcher, after the router-injected sender identity has been stripped.
type inboundGroup struct {
	control       *controlPacket
	correlationID string
	payload       []byte
}

// classifyInbound disambiguates a control packet from a reply. content is
// the frame list with the sender identity and empty delimiter already
// removed. A malformed group yields an error; the caller logs and drops it,
// it never tears down the socket.
func classifyInbound(content [][]byte) (inboundGroup, error) {
	if len(content) != 2 {
		return inboundGroup{}, fmt.Errorf("%w: expected 2 content frames, got %d", errMalformed, len(content))
	}

	first, second := content[0], content[1]

	if len(first) == 1 {
		if name, ok := kindNames[first[0]]; ok {
			identity := string(second)
			if identity == "" {
				return inboundGroup{}, fmt.Errorf("%w: %s control packet missing identity", errMalformed, name)
			}
			return inboundGroup{control: &controlPacket{kind: first[0], identity: identity}}, nil
		}
	}

	correlationID := string(first)
	if correlationID == "" {
		return inboundGroup{}, fmt.Errorf("%w: reply missing correlation id", errMalformed)
	}
	return inboundGroup{correlationID: correlationID, payload: second}, nil
}

// errMalformed is wrapped by classifyInbound's returned errors; dropped
// groups are never surfaced to a caller, only logged (see CodeMalformedFrame).
var errMalformed = fmt.Errorf("malformed frame group")

// encodeControl builds a worker->dispatcher control group: an empty
// delimiter frame, the kind byte, then the identity bytes.
func encodeControl(kind byte, identity string) [][]byte {
	return [][]byte{{}, {kind}, []byte(identity)}
}

// encodeRequest builds a dispatcher->worker request group, prefixed by the
// destination worker identity for ROUTER routing.
func encodeRequest(identity, correlationID string, payload []byte) [][]byte {
	return [][]byte{[]byte(identity), {}, []byte(correlationID), payload}
}

// encodeReply builds a worker->dispatcher reply group: an empty delimiter
// frame, the correlation id, then the result payload.
func encodeReply(correlationID string, payload []byte) [][]byte {
	return [][]byte{{}, []byte(correlationID), payload}
}
