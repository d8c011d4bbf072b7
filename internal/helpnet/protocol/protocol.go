// Package protocol defines the help-network event vocabulary: the event
// kinds, tag names and payload shapes exchanged between requesters and
// responders over the relay network.
package protocol

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/unstuck-ai/helpnet-backend/internal/helpnet/types"
)

const (
	// KindHelpRequest is published by an agent asking for visual help.
	KindHelpRequest = 5109

	// KindOffer is a priced "payment required" response from a helper.
	KindOffer = 7000

	// Result events occupy [KindResultMin, KindResultMax]. Only
	// KindResultFinal terminates a job; other kinds in the range are
	// informational updates.
	KindResultMin   = 6000
	KindResultMax   = 6999
	KindResultFinal = 6109
)

const (
	TagRef         = "e"
	TagPubkey      = "p"
	TagDescription = "description"
	TagImage       = "image"
	TagMaxPrice    = "max_price"
	TagAmount      = "amount"
	TagInvoice     = "bolt11"
	TagStatus      = "status"
	TagRequest     = "request"
)

// EventClass is the coarse classification the correlator routes on.
type EventClass int

const (
	ClassOther EventClass = iota
	ClassRequest
	ClassOffer
	ClassResult
)

// Classify buckets an event kind into the classes this protocol acts on.
func Classify(kind int) EventClass {
	switch {
	case kind == KindHelpRequest:
		return ClassRequest
	case kind == KindOffer:
		return ClassOffer
	case kind >= KindResultMin && kind <= KindResultMax:
		return ClassResult
	default:
		return ClassOther
	}
}

// IsFinalResult reports whether an event kind terminates a job's wait.
func IsFinalResult(kind int) bool {
	return kind == KindResultFinal
}

// NewHelpRequest builds an unsigned help-request event. The description is
// carried both as content and as a tag so either can be read back exactly.
func NewHelpRequest(description, imageURL string, maxPriceSats int64) nostr.Event {
	tags := nostr.Tags{
		nostr.Tag{TagDescription, description},
		nostr.Tag{TagImage, imageURL},
	}
	if maxPriceSats > 0 {
		tags = append(tags, nostr.Tag{TagMaxPrice, strconv.FormatInt(maxPriceSats, 10)})
	}
	return nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      KindHelpRequest,
		Tags:      tags,
		Content:   description,
	}
}

// NewOffer builds an unsigned offer event responding to a help request.
func NewOffer(jobID, requesterPubkey string, amountSats int64, invoice, content string) nostr.Event {
	tags := nostr.Tags{
		nostr.Tag{TagRef, jobID},
		nostr.Tag{TagPubkey, requesterPubkey},
		nostr.Tag{TagStatus, "payment-required"},
		nostr.Tag{TagAmount, strconv.FormatInt(amountSats, 10)},
	}
	if invoice != "" {
		tags = append(tags, nostr.Tag{TagInvoice, invoice})
	}
	return nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      KindOffer,
		Tags:      tags,
		Content:   content,
	}
}

// NewResult builds an unsigned final-result event for a job.
func NewResult(jobID, requesterPubkey, content string) nostr.Event {
	return nostr.Event{
		CreatedAt: nostr.Now(),
		Kind:      KindResultFinal,
		Tags: nostr.Tags{
			nostr.Tag{TagRef, jobID},
			nostr.Tag{TagPubkey, requesterPubkey},
			nostr.Tag{TagStatus, "completed"},
		},
		Content: content,
	}
}

// RelatedTo reports whether an event references the given job id, either
// through a direct "e" tag or through an embedded request tag whose JSON
// payload carries the id. Responders use both conventions, so both are
// checked.
func RelatedTo(ev *nostr.Event, jobID string) bool {
	for _, tag := range ev.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case TagRef:
			if tag[1] == jobID {
				return true
			}
		case TagRequest:
			var embedded struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal([]byte(tag[1]), &embedded); err == nil && embedded.ID == jobID {
				return true
			}
		}
	}
	return false
}

// ParseOffer extracts an offer from a kind-7000 event. Missing or
// malformed price/invoice tags leave the zero values in place; the offer
// is still recorded, just never payable.
func ParseOffer(ev *nostr.Event, jobID string, receivedAt time.Time) *types.Offer {
	offer := &types.Offer{
		EventID:    ev.ID,
		JobID:      jobID,
		Pubkey:     ev.PubKey,
		Content:    ev.Content,
		ReceivedAt: receivedAt,
	}
	for _, tag := range ev.Tags {
		if len(tag) < 2 {
			continue
		}
		switch tag[0] {
		case TagAmount:
			if price, err := strconv.ParseInt(tag[1], 10, 64); err == nil {
				offer.PriceSats = price
			}
		case TagInvoice:
			offer.Invoice = tag[1]
		}
	}
	return offer
}

// ParseResult converts a result-range event into a JobResult record.
func ParseResult(ev *nostr.Event, jobID string, receivedAt time.Time) *types.JobResult {
	tags := make([][]string, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		tags = append(tags, []string(tag))
	}
	return &types.JobResult{
		EventID:    ev.ID,
		JobID:      jobID,
		Kind:       ev.Kind,
		Pubkey:     ev.PubKey,
		Content:    ev.Content,
		Tags:       tags,
		ReceivedAt: receivedAt,
	}
}

// RequestDescription reads the description tag of a help request, falling
// back to the event content.
func RequestDescription(ev *nostr.Event) string {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == TagDescription {
			return tag[1]
		}
	}
	return ev.Content
}

// RequestImage reads the image tag of a help request.
func RequestImage(ev *nostr.Event) string {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == TagImage {
			return tag[1]
		}
	}
	return ""
}
