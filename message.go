package embedx

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is a fire-and-forget payload addressed to a named entity inside
// the runtime.
type Message struct {
	// ID correlates a message across logs. Nothing acknowledges it.
	ID     string
	Target string
	Method string
	Body   string
	// Seq numbers messages from one instance in dispatch order.
	Seq    uint64
	SentAt time.Time
}

func (m Message) String() string {
	return fmt.Sprintf("%s.%s#%d", m.Target, m.Method, m.Seq)
}

// SendMessage dispatches body to method on the runtime entity named target.
// It succeeds only while the instance is Running; otherwise it returns an
// error wrapping ErrNotReady and nothing is queued for later. Delivery is
// best effort and unconfirmed.
func (i *Instance) SendMessage(target, method, body string) error {
	const op = "send_message"
	if target == "" || method == "" {
		recordMessage("rejected")
		return i.reject(op, fmt.Errorf("%w: target and method are required", ErrInvalidMessage))
	}

	i.mu.Lock()
	st := i.stateLocked()
	if st != StateRunning {
		i.mu.Unlock()
		recordMessage("rejected")
		return i.reject(op, fmt.Errorf("%w: instance is %s", ErrNotReady, st))
	}
	i.seq++
	msg := Message{
		ID:     uuid.NewString(),
		Target: target,
		Method: method,
		Body:   body,
		Seq:    i.seq,
		SentAt: time.Now(),
	}
	eng := i.engine
	i.mu.Unlock()

	eng.Deliver(msg)
	recordMessage("sent")
	i.log().Debug("message dispatched",
		zap.String("id", msg.ID),
		zap.String("target", target),
		zap.String("method", method),
		zap.Uint64("seq", msg.Seq))
	return nil
}

// KeyboardTextField returns the runtime's active on-screen keyboard input
// surface, or InvalidHandle when no keyboard is shown or the runtime is not
// loaded.
func (i *Instance) KeyboardTextField() Handle {
	i.mu.Lock()
	st := i.stateLocked()
	eng := i.engine
	i.mu.Unlock()

	if eng == nil || (st != StateRunning && st != StatePaused) {
		return InvalidHandle
	}
	return eng.KeyboardSurface()
}
