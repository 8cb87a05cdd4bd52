package notification

import (
	"context"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// SendResult is the gateway's answer for one message.
type SendResult struct {
	// DispatchID is the gateway-assigned message identifier, when the
	// gateway returns one.
	DispatchID string
}

// Gateway is the external notification-dispatch capability. One message per
// call, synchronous from the caller's view, no ordering guarantee across
// concurrent calls. The transport behind it is not this system's concern.
type Gateway interface {
	Send(ctx context.Context, contact student.GuardianContact, message Message) (SendResult, error)
}
