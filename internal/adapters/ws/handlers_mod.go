package ws

import (
	"encoding/json"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
	"github.com/ToadySP/MountainOfSpirits/internal/domain"
)

func (ctl *Controller) handleLock(sess *session, data []byte) {
	var p struct {
		Password string `json:"password,omitempty"`
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
	if err := ctl.Orch.Lock(sess, a, p.Password); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleUnlock(sess *session) {
	a := sess.Area()
	if a == nil {
		ctl.sendError(sess, domain.UserError(domain.ErrNotFound))
		return
	}
	if err := ctl.Orch.Unlock(sess, a); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleSpectatable(sess *session) {
	a := sess.Area()
	if a == nil {
		ctl.sendError(sess, domain.UserError(domain.ErrNotFound))
		return
	}
	if err := ctl.Orch.Spectator(sess, a); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handlePassword(sess *session, data []byte) {
	var p struct {
		Password string `json:"password"`
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
	if err := ctl.Orch.SetPassword(sess, a, p.Password); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleInvite(sess *session, data []byte) {
	ctl.inviteOp(sess, data, ctl.Orch.Invite)
}

func (ctl *Controller) handleUninvite(sess *session, data []byte) {
	ctl.inviteOp(sess, data, ctl.Orch.Uninvite)
}

func (ctl *Controller) inviteOp(sess *session, data []byte, op func(core.Session, *core.Area, domain.SessionID) error) {
	var p struct {
		ID int `json:"id"`
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
	if err := op(sess, a, domain.SessionID(p.ID)); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleUninviteAll(sess *session) {
	a := sess.Area()
	if a == nil {
		ctl.sendError(sess, domain.UserError(domain.ErrNotFound))
		return
	}
	if err := ctl.Orch.UninviteAll(sess, a); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleCM(sess *session, data []byte) {
	ctl.cmOp(sess, data, ctl.Orch.AddOwner)
}

func (ctl *Controller) handleUnCM(sess *session, data []byte) {
	ctl.cmOp(sess, data, ctl.Orch.RemoveOwner)
}

func (ctl *Controller) cmOp(sess *session, data []byte, op func(core.Session, *core.Area, core.Session) error) {
	var p struct {
		ID *int `json:"id,omitempty"`
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
	var target core.Session = sess
	if p.ID != nil {
		t, ok := ctl.Orch.Registry.Lookup(domain.SessionID(*p.ID))
		if !ok {
			ctl.sendError(sess, domain.UserError(domain.ErrNotFound))
			return
		}
		target = t
	}
	if err := op(sess, a, target); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleStatus(sess *session, data []byte) {
	var p struct {
		Status string `json:"status"`
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
	if err := ctl.Orch.ChangeStatus(sess, a, p.Status); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleHubStatus(sess *session, data []byte) {
	var p struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(sess, "bad_payload")
		return
	}
	a := sess.Area()
	if a != nil && a.IsSub() {
		a = a.Hub
	}
	if a == nil {
		ctl.sendError(sess, domain.UserError(domain.ErrNotFound))
		return
	}
	if err := ctl.Orch.HubStatus(sess, a, p.Status); err != nil {
		ctl.sendError(sess, domain.UserError(err))
	}
}

func (ctl *Controller) handleHide(sess *session, hide bool) {
	sess.SetHidden(hide)
	if a := sess.Area(); a != nil {
		ctl.Orch.RefreshCounts(a)
	}
	if hide {
		ctl.sendJSON(sess, map[string]any{"type": "notice", "text": "You are now hidden from area listings."})
	} else {
		ctl.sendJSON(sess, map[string]any{"type": "notice", "text": "You are no longer hidden."})
	}
}
