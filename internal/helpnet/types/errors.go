package types

import (
	"errors"
	"fmt"
)

// ErrNoRelaysAccepted is returned when a broadcast was rejected by every
// configured relay. Distinct from receiving no responses: the request was
// never published at all.
var ErrNoRelaysAccepted = errors.New("no relay accepted the event")

// UploadError wraps a failure to make a subject reference public. Fatal
// before broadcast; never retried.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// LimitExceededError is returned when a payment amount exceeds the global
// auto-payment ceiling. No backend is contacted.
type LimitExceededError struct {
	AmountSats  int64
	CeilingSats int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("amount %d sats exceeds auto-payment limit of %d sats", e.AmountSats, e.CeilingSats)
}

// PaymentError is returned when both payment backends failed. The fallback
// backend's error supersedes the primary's, which is retained for
// inspection.
type PaymentError struct {
	Primary  error
	Fallback error
}

func (e *PaymentError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("all payment backends failed: %v", e.Primary)
	}
	return fmt.Sprintf("all payment backends failed: %v", e.Fallback)
}

func (e *PaymentError) Unwrap() error {
	if e.Fallback == nil {
		return e.Primary
	}
	return e.Fallback
}
