package app

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ToadySP/MountainOfSpirits/internal/core"
)

// Audit receives one event per membership, ownership or lock
// transition. Sinks are fire-and-forget: the orchestrator never waits
// on one and a failing sink never fails the mutation it describes.
type Audit interface {
	Event(action string, actor core.Session, area *core.Area, message string)
}

type zerologAudit struct {
	logger zerolog.Logger
}

// NewAudit returns the default sink, writing structured events through
// the global zerolog logger.
func NewAudit() Audit {
	return &zerologAudit{logger: log.With().Str("module", "app.audit").Logger()}
}

func (a *zerologAudit) Event(action string, actor core.Session, area *core.Area, message string) {
	ev := a.logger.Info().Str("action", action)
	if actor != nil {
		ev = ev.Int("sid", int(actor.ID())).Str("actor", actor.Name())
	}
	if area != nil {
		ev = ev.Int("area", int(area.ID)).Str("area_name", area.Name)
	}
	ev.Msg(message)
}

// emit guards every sink call so a panicking sink cannot abort the
// mutation that produced the event.
func emit(sink Audit, action string, actor core.Session, area *core.Area, message string) {
	if sink == nil {
		return
	}
	defer func() { _ = recover() }()
	sink.Event(action, actor, area, message)
}
