package ws

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

// resolveArea accepts an abbreviation first, then a full name resolved
// in the session's hub context.
func (ctl *Controller) resolveArea(sess *session, ref string) (*core.Area, error) {
	if a, err := ctl.Orch.Graph.FindByAbbreviation(ref); err == nil {
		return a, nil
	}
	return ctl.Orch.Graph.FindByName(ref, sess)
}

func (ctl *Controller) handleWhoAmI(sess *session) {
	resp := map[string]any{
		"type": "whoami",
		"id":   sess.ID(),
		"name": sess.Name(),
	}
	if a := sess.Area(); a != nil {
		resp["area"] = a.Name
		resp["abbreviation"] = a.Abbreviation
	}
	ctl.sendJSON(sess, resp)
}

func (ctl *Controller) handleRename(sess *session, data []byte) {
	var p struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Name == "" {
		ctl.sendError(sess, "bad_payload")
		return
	}
	if len(p.Name) > 36 {
		p.Name = p.Name[:36]
	}
	sess.SetName(p.Name)
	ctl.handleWhoAmI(sess)
}

func (ctl *Controller) handleEnter(sess *session, data []byte) {
	var p struct {
		Area     string `json:"area"`
		Password string `json:"password,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sess, "bad_payload")
		return
	}
	target, err := ctl.resolveArea(sess, p.Area)
	if err != nil {
		ctl.sendError(sess, domain.UserError(err))
		return
	}
	err = ctl.Orch.Enter(sess, target)
	if hasPassword, locked := domain.IsLocked(err); locked && hasPassword && p.Password != "" {
		err = ctl.Orch.EnterWithPassword(sess, target, p.Password)
	}
	if err != nil {
		log.Debug().Err(err).Str("module", "ws").Int("sid", int(sess.ID())).Msg("enter refused")
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleSay(sess *session, data []byte) {
	var p struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Text == "" {
		ctl.sendError(sess, "bad_payload")
		return
	}
	if err := ctl.Orch.Chat(sess, p.Text); err != nil {
		ctl.sendError(sess, "This is a locked area - ask the CM to speak.")
	}
}

func (ctl *Controller) handleCreateArea(sess *session, data []byte) {
	var p struct {
		Name  string `json:"name,omitempty"`
		Count int    `json:"count,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sess, "bad_payload")
		return
	}
	if p.Count > 1 {
		if err := ctl.Orch.CreateSubAreas(sess, p.Count); err != nil {
			ctl.sendError(sess, domain.UserError(err))
			return
		}
		ctl.sendJSON(sess, map[string]any{"type": "notice", "text": "Areas created!"})
		return
	}
	sub, err := ctl.Orch.CreateSubArea(sess, p.Name)
	if err != nil {
		ctl.sendError(sess, domain.UserError(err))
		return
	}
	ctl.sendJSON(sess, map[string]any{
		"type": "area_created", "area": sub.Name, "abbreviation": sub.Abbreviation,
	})
}

func (ctl *Controller) handleDestroyArea(sess *session, data []byte) {
	var p struct {
		Area string `json:"area,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sess, "bad_payload")
		return
	}
	target := sess.Area()
	if p.Area != "" {
		var err error
		if target, err = ctl.resolveArea(sess, p.Area); err != nil {
			ctl.sendError(sess, domain.UserError(err))
			return
		}
	}
	if err := ctl.Orch.DestroySubArea(sess, target); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleClearHub(sess *session) {
	if err := ctl.Orch.ClearHub(sess); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleConnect(sess *session, data []byte) {
	var p struct {
		Area          string `json:"area"`
		Bidirectional bool   `json:"bidirectional,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sess, "bad_payload")
		return
	}
	target, err := ctl.resolveArea(sess, p.Area)
	if err != nil {
		ctl.sendError(sess, domain.UserError(err))
		return
	}
	if err := ctl.Orch.Connect(sess, target, p.Bidirectional); err != nil {
		ctl.sendError(sess, domain.UserError(err))
		return
	}
	ctl.sendJSON(sess, map[string]any{"type": "notice", "text": "Area connected!"})
}

func (ctl *Controller) handleDisconnect(sess *session, data []byte) {
	var p struct {
		Area          string `json:"area"`
		Bidirectional bool   `json:"bidirectional,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sess, "bad_payload")
		return
	}
	target, err := ctl.resolveArea(sess, p.Area)
	if err != nil {
		ctl.sendError(sess, domain.UserError(err))
		return
	}
	if err := ctl.Orch.Disconnect(sess, target, p.Bidirectional); err != nil {
		ctl.sendError(sess, domain.UserError(err))
		return
	}
	ctl.sendJSON(sess, map[string]any{"type": "notice", "text": "Area disconnected!"})
}

func (ctl *Controller) handleClearConnections(sess *session) {
	if err := ctl.Orch.ClearConnections(sess); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleAlarm(sess *session, data []byte) {
	var p struct {
		Seconds int  `json:"seconds,omitempty"`
		Clear   bool `json:"clear,omitempty"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sess, "bad_payload")
		return
	}
	a := sess.Area()
	if a == nil {
		ctl.sendError(sess, domain.UserError(domain.ErrNotFound))
		return
	}
	var err error
	if p.Clear {
		err = ctl.Orch.ClearAlarm(sess, a)
	} else {
		err = ctl.Orch.SetAlarm(sess, a, time.Duration(p.Seconds)*time.Second)
	}
	if err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}
