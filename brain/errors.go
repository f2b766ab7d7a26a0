package brain

import "fmt"

// ConnectionError means the connection could not be established or dropped.
// It is fatal to the client instance; callers degrade to stale actions.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("brain: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError means the peer misbehaved: empty response, malformed
// payload, short read, or an unknown message kind. Non-fatal to the tick.
type ProtocolError struct {
	Op  string
	Msg string
	Err error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("brain: protocol error during %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("brain: protocol error during %s: %s", e.Op, e.Msg)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
