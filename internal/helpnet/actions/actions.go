package actions

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Action types a helper can send back. Responder clients are loose with
// casing and underscores, so parsing normalizes aliases onto these.
const (
	TypeClick       = "click"
	TypeDoubleClick = "doubleClick"
	TypeDrag        = "drag"
	TypeMoveMouse   = "moveMouse"
)

// Action is one desktop step. Coordinates are percentages of the screen,
// 0 to 100 on both axes, so results are independent of the requester's
// resolution. Drags use the start/end pairs, everything else uses X/Y.
type Action struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	StartX float64 `json:"startX,omitempty"`
	StartY float64 `json:"startY,omitempty"`
	EndX   float64 `json:"endX,omitempty"`
	EndY   float64 `json:"endY,omitempty"`

	hasStart bool
	hasEnd   bool
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// UnmarshalJSON accepts drag endpoints in the nested form helper clients
// emit, {"start":{"x":..,"y":..},"end":{..}}, as well as the flat
// startX/startY/endX/endY keys. Nested points win when both appear.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   string   `json:"type"`
		X      float64  `json:"x"`
		Y      float64  `json:"y"`
		Start  *point   `json:"start"`
		End    *point   `json:"end"`
		StartX *float64 `json:"startX"`
		StartY *float64 `json:"startY"`
		EndX   *float64 `json:"endX"`
		EndY   *float64 `json:"endY"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Type = raw.Type
	a.X, a.Y = raw.X, raw.Y

	switch {
	case raw.Start != nil:
		a.StartX, a.StartY = raw.Start.X, raw.Start.Y
		a.hasStart = true
	case raw.StartX != nil || raw.StartY != nil:
		if raw.StartX != nil {
			a.StartX = *raw.StartX
		}
		if raw.StartY != nil {
			a.StartY = *raw.StartY
		}
		a.hasStart = true
	}
	switch {
	case raw.End != nil:
		a.EndX, a.EndY = raw.End.X, raw.End.Y
		a.hasEnd = true
	case raw.EndX != nil || raw.EndY != nil:
		if raw.EndX != nil {
			a.EndX = *raw.EndX
		}
		if raw.EndY != nil {
			a.EndY = *raw.EndY
		}
		a.hasEnd = true
	}
	return nil
}

var typeAliases = map[string]string{
	"click":        TypeClick,
	"doubleclick":  TypeDoubleClick,
	"double_click": TypeDoubleClick,
	"drag":         TypeDrag,
	"movemouse":    TypeMoveMouse,
	"move_mouse":   TypeMoveMouse,
}

// ParseActions decodes a result payload into an action list. The payload
// is either a bare JSON array or an object with an "actions" field.
func ParseActions(content string) ([]Action, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty action payload")
	}

	var list []Action
	if err := json.Unmarshal([]byte(content), &list); err != nil {
		var wrapped struct {
			Actions []Action `json:"actions"`
		}
		if err2 := json.Unmarshal([]byte(content), &wrapped); err2 != nil || wrapped.Actions == nil {
			return nil, fmt.Errorf("action payload is neither a list nor an object with actions: %w", err)
		}
		list = wrapped.Actions
	}

	for i := range list {
		canonical, ok := typeAliases[strings.ToLower(list[i].Type)]
		if !ok {
			return nil, fmt.Errorf("action %d has unknown type %q", i, list[i].Type)
		}
		list[i].Type = canonical
		if err := validateAction(list[i]); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}
	return list, nil
}

func validateAction(a Action) error {
	inRange := func(v float64) bool { return v >= 0 && v <= 100 }
	switch a.Type {
	case TypeDrag:
		if !a.hasStart || !a.hasEnd {
			return fmt.Errorf("drag is missing its start or end point")
		}
		for _, v := range []float64{a.StartX, a.StartY, a.EndX, a.EndY} {
			if !inRange(v) {
				return fmt.Errorf("drag coordinate %v outside 0-100", v)
			}
		}
	default:
		if !inRange(a.X) || !inRange(a.Y) {
			return fmt.Errorf("coordinate (%v, %v) outside 0-100", a.X, a.Y)
		}
	}
	return nil
}

// ToPixel converts a percentage coordinate to a pixel offset on an axis of
// the given size.
func ToPixel(pct float64, size int) int {
	return int(math.Round(pct / 100 * float64(size)))
}
