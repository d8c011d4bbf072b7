package relays

import (
	"encoding/json"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// Relay wire framing: every frame is a JSON array whose first element is a
// label. Outbound: ["EVENT", <event>], ["REQ", <subid>, <filter>],
// ["CLOSE", <subid>]. Inbound: ["EVENT", <subid>, <event>],
// ["OK", <eventid>, <bool>, <message>], ["EOSE", <subid>],
// ["CLOSED", <subid>, <message>], ["NOTICE", <message>].

func encodeEventFrame(ev *nostr.Event) ([]byte, error) {
	return json.Marshal([]interface{}{"EVENT", ev})
}

func encodeReqFrame(subID string, filter nostr.Filter) ([]byte, error) {
	return json.Marshal([]interface{}{"REQ", subID, filter})
}

func encodeCloseFrame(subID string) ([]byte, error) {
	return json.Marshal([]interface{}{"CLOSE", subID})
}

type inboundFrame struct {
	Label string

	// EVENT
	SubID string
	Event *nostr.Event

	// OK
	EventID  string
	Accepted bool

	// OK / CLOSED / NOTICE
	Message string
}

func decodeFrame(data []byte) (*inboundFrame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return nil, fmt.Errorf("frame is not a JSON array: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	var label string
	if err := json.Unmarshal(parts[0], &label); err != nil {
		return nil, fmt.Errorf("frame label is not a string: %w", err)
	}

	frame := &inboundFrame{Label: label}
	switch label {
	case "EVENT":
		if len(parts) < 3 {
			return nil, fmt.Errorf("EVENT frame has %d elements", len(parts))
		}
		if err := json.Unmarshal(parts[1], &frame.SubID); err != nil {
			return nil, fmt.Errorf("EVENT subscription id: %w", err)
		}
		var ev nostr.Event
		if err := json.Unmarshal(parts[2], &ev); err != nil {
			return nil, fmt.Errorf("EVENT payload: %w", err)
		}
		frame.Event = &ev
	case "OK":
		if len(parts) < 3 {
			return nil, fmt.Errorf("OK frame has %d elements", len(parts))
		}
		if err := json.Unmarshal(parts[1], &frame.EventID); err != nil {
			return nil, fmt.Errorf("OK event id: %w", err)
		}
		if err := json.Unmarshal(parts[2], &frame.Accepted); err != nil {
			return nil, fmt.Errorf("OK accepted flag: %w", err)
		}
		if len(parts) > 3 {
			_ = json.Unmarshal(parts[3], &frame.Message)
		}
	case "EOSE":
		if len(parts) >= 2 {
			_ = json.Unmarshal(parts[1], &frame.SubID)
		}
	case "CLOSED":
		if len(parts) >= 2 {
			_ = json.Unmarshal(parts[1], &frame.SubID)
		}
		if len(parts) > 2 {
			_ = json.Unmarshal(parts[2], &frame.Message)
		}
	case "NOTICE":
		if len(parts) >= 2 {
			_ = json.Unmarshal(parts[1], &frame.Message)
		}
	}
	return frame, nil
}
