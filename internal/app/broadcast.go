package app

import "quiz-live-service/internal/protocol"

// Conn is the outbound half of a host or player connection. Send must not
// block: implementations queue the frame and report failure instead.
// Frames sent to one Conn must be delivered in the order Send was called.
type Conn interface {
	Send(m protocol.Message) error
	Close() error
}

// deliver is best-effort: a broken connection loses the frame and nothing else.
func deliver(c Conn, m protocol.Message) {
	if c == nil {
		return
	}
	_ = c.Send(m)
}

// fanOut delivers m to each conn independently; one failure never stops the rest.
func fanOut(conns []Conn, m protocol.Message) {
	for _, c := range conns {
		deliver(c, m)
	}
}
