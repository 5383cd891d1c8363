package hub

import (
	"encoding/json"

	"github.com/llmholdem/server/internal/events"
)

// dispatch decodes one inbound message by type and routes it to the
// owning Session Runtime, matching the Connection Hub's dispatch table.
func (c *Connection) dispatch(msgType string, data json.RawMessage) {
	rt := c.hub.runtimeFor(c.user.ID)

	switch msgType {
	case events.TypePlayerAction:
		var a events.PlayerAction
		if err := json.Unmarshal(data, &a); err != nil {
			c.sendError("validation", "malformed player_action payload")
			return
		}
		rt.HandlePlayerAction(a)

	case events.TypeStartNextRound:
		rt.SignalNextRound()

	case events.TypeAICopilotSetting:
		var s events.AICopilotSetting
		if err := json.Unmarshal(data, &s); err != nil {
			c.sendError("validation", "malformed ai_copilot_setting payload")
			return
		}
		rt.SetCopilot(s.Enabled)

	case events.TypeReviewRequest:
		var req events.ReviewRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError("validation", "malformed review_request payload")
			return
		}
		select {
		case c.hub.reviewWork <- reviewJob{userID: c.user.ID, roundID: req.RoundID, conn: c}:
		default:
			c.sendError("llm_unavailable", "review queue is full, try again shortly")
		}

	case events.TypeNewGame:
		rt.ForceRestart(c.ctx)
		c.enqueue(events.Envelope{Type: events.TypeSystem, Data: events.System{Content: "new game starting", IsAdmin: c.user.IsAdmin}})

	case events.TypeDebugMode:
		if !c.user.IsAdmin {
			c.sendError("auth", "debug_mode requires admin")
			return
		}
		var d events.DebugModeRequest
		if err := json.Unmarshal(data, &d); err != nil {
			c.sendError("validation", "malformed debug_mode payload")
			return
		}
		rt.SetDebug(d.Enabled, d.FilterBots)
		c.enqueue(events.Envelope{
			Type: events.TypeDebugModeUpdated,
			Data: events.DebugModeUpdated{Enabled: d.Enabled, FilterBots: d.FilterBots},
		})

	case events.TypePing:
		c.enqueue(events.Envelope{Type: events.TypePong})

	default:
		c.sendError("validation", "unknown message type: "+msgType)
	}
}
