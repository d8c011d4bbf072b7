package types

import "time"

// JobStatus is the lifecycle state of a help request. Transitions are
// monotonic: sent -> awaiting_result -> completed | timed_out | failed.
type JobStatus string

const (
	JobStatusSent           JobStatus = "sent"
	JobStatusAwaitingResult JobStatus = "awaiting_result"
	JobStatusCompleted      JobStatus = "completed"
	JobStatusTimedOut       JobStatus = "timed_out"
	JobStatusFailed         JobStatus = "failed"
)

// PaymentState tracks the payment outcome recorded on an offer.
type PaymentState string

const (
	PaymentStateNone  PaymentState = ""
	PaymentStatePaid  PaymentState = "paid"
	PaymentStateError PaymentState = "error"
)

// HelpRequest is the caller-facing description of a stuck task. Exactly one
// of ImagePath or ImageURL may be set; a local path is uploaded before the
// request goes out.
type HelpRequest struct {
	Description  string `json:"description"`
	ImagePath    string `json:"image_path,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	MaxPriceSats int64  `json:"max_price_sats,omitempty"`
	// WaitForResult defaults to true when omitted; false broadcasts the
	// request and returns without ever opening a wait.
	WaitForResult *bool `json:"wait_for_result,omitempty"`
	// TimeoutSeconds overrides the configured response timeout for this
	// job only.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// ShouldWait reports whether the caller wants to stay for the result.
func (r HelpRequest) ShouldWait() bool {
	return r.WaitForResult == nil || *r.WaitForResult
}

// Offer is a priced response from a candidate helper. Offers are unique by
// their own event id; duplicates are discarded by the correlator before
// they reach the offer book.
type Offer struct {
	EventID      string       `json:"event_id"`
	JobID        string       `json:"job_id"`
	PriceSats    int64        `json:"price_sats"`
	Invoice      string       `json:"invoice"`
	Pubkey       string       `json:"pubkey"`
	Content      string       `json:"content"`
	ReceivedAt   time.Time    `json:"received_at"`
	Payment      PaymentState `json:"payment,omitempty"`
	PaymentError string       `json:"payment_error,omitempty"`
}

// Valid reports whether the offer carries everything needed to pay it: a
// positive price and a non-empty invoice. Invalid offers stay in the book
// for audit but are never selected.
func (o *Offer) Valid() bool {
	return o.PriceSats > 0 && o.Invoice != ""
}

// JobResult is the terminal payload of a completed job. At most one result
// is retained per job: the first final-kind event addressed to it.
type JobResult struct {
	EventID    string     `json:"event_id"`
	JobID      string     `json:"job_id"`
	Kind       int        `json:"kind"`
	Pubkey     string     `json:"pubkey"`
	Content    string     `json:"content"`
	Tags       [][]string `json:"tags,omitempty"`
	ReceivedAt time.Time  `json:"received_at"`
}

// RelayStatus records the per-relay outcome of a broadcast. A request may
// be accepted by some relays and rejected by others without failing.
type RelayStatus struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// JobOutcome is the uniform result of a help request. It always carries
// the full offer list, even when the job timed out or failed.
type JobOutcome struct {
	JobID         string                 `json:"job_id"`
	Status        JobStatus              `json:"status"`
	Offers        []*Offer               `json:"offers"`
	SelectedOffer *Offer                 `json:"selected_offer,omitempty"`
	Result        *JobResult             `json:"result,omitempty"`
	Relays        map[string]RelayStatus `json:"relays,omitempty"`
	Error         string                 `json:"error,omitempty"`
}
