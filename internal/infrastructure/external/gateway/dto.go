package gateway

// sendRequest is the wire format for one outbound message.
type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// sendResponse is the provider's acknowledgement.
type sendResponse struct {
	DispatchID string `json:"dispatch_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}
