// internal/game/special_actions.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/showtime/engine"
)

// ParsePowerRequest decodes the payload of a "power" command as it arrives
// from a JSON socket frame:
//
//	{"rank": "K", "option": "activate", "cardId": "...", "discardCardId": "...",
//	 "bluff": false, "targets": [{"id": "...", "idx": 2, "user": {"id": "..."}}]}
//
// Numbers arrive as float64. Unknown fields are ignored.
func ParsePowerRequest(data map[string]any) (engine.PowerRequest, error) {
	var req engine.PowerRequest
	if data == nil {
		return req, invalidArg("power payload is required")
	}

	rankStr, _ := data["rank"].(string)
	rank, ok := engine.ParseRank(rankStr)
	if !ok {
		return req, invalidArg("unknown rank %q", rankStr)
	}
	req.Rank = rank

	req.Option = engine.OptionActivate
	if opt, ok := data["option"].(string); ok && opt != "" {
		req.Option = engine.PowerOption(opt)
	}
	req.CardID, _ = data["cardId"].(string)
	req.DiscardCardID, _ = data["discardCardId"].(string)
	req.Bluff, _ = data["bluff"].(bool)

	if raw, present := data["targets"]; present && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return req, invalidArg("targets must be a list")
		}
		for i, item := range list {
			m, _ := item.(map[string]any)
			target, ok := parseCardTarget(m)
			if !ok {
				return req, invalidArg("target %d needs a card id or slot", i)
			}
			req.Targets = append(req.Targets, target)
		}
	}
	return req, nil
}

// parseCardTarget reads {"id", "idx", "user": {"id"}}. Either the card id or
// a non-negative integral idx must be present. An absent owner means the
// requester.
func parseCardTarget(data map[string]any) (engine.Target, bool) {
	var target engine.Target
	if data == nil {
		return target, false
	}
	target.CardID, _ = data["id"].(string)

	if idx, ok := data["idx"].(float64); ok && idx >= 0 && idx == float64(int(idx)) {
		target.Slot = intRef(int(idx))
	}
	if u, ok := data["user"].(map[string]any); ok {
		target.PlayerID, _ = u["id"].(string)
	}
	return target, target.CardID != "" || target.Slot != nil
}

// ParseResolution decodes a "resolve" command payload: {"kind": "replace", "idx": 1}.
func ParseResolution(data map[string]any) (engine.Resolution, error) {
	kind, _ := data["kind"].(string)
	res := engine.Resolution{Kind: engine.ResolveKind(kind)}
	switch res.Kind {
	case engine.ResolveDiscard:
	case engine.ResolveReplace:
		idx, ok := data["idx"].(float64)
		if !ok || idx < 0 || idx != float64(int(idx)) {
			return res, invalidArg("replace needs a non-negative integral idx")
		}
		res.Slot = int(idx)
	default:
		return res, invalidArg("unknown resolution %q", kind)
	}
	return res, nil
}

func invalidArg(format string, args ...any) error {
	return &engine.Error{Kind: engine.KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}
