package update

import (
	"context"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

const (
	phaseNotUpdated = "notUpdated"
	phaseUpdating   = "updating"
	phaseSucceeded  = "succeeded"
	phaseFailed     = "failed"

	eventBegin   = "begin"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

// phases tracks the progress of a single update attempt.
// No state is persisted between attempts; every Update call starts a
// fresh machine and re-derives its starting point from a live
// freshness check.
type phases struct {
	*fsm.FSM
	log zerolog.Logger
}

func newPhases(log zerolog.Logger) *phases {
	p := &phases{log: log}
	p.FSM = fsm.NewFSM(
		phaseNotUpdated,
		fsm.Events{
			{Name: eventBegin, Src: []string{phaseNotUpdated}, Dst: phaseUpdating},
			{Name: eventSucceed, Src: []string{phaseUpdating}, Dst: phaseSucceeded},
			{Name: eventFail, Src: []string{phaseUpdating}, Dst: phaseFailed},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				log.Debug().Str("from", e.Src).Str("to", e.Dst).Msg("Update phase changed")
			},
		},
	)
	return p
}

func (p *phases) begin(ctx context.Context)   { p.fire(ctx, eventBegin) }
func (p *phases) succeed(ctx context.Context) { p.fire(ctx, eventSucceed) }
func (p *phases) fail(ctx context.Context)    { p.fire(ctx, eventFail) }

func (p *phases) fire(ctx context.Context, event string) {
	// Transitions are statically valid; a failure here is a bug.
	if err := p.Event(ctx, event); err != nil {
		p.log.Error().Err(err).Str("event", event).Msg("Invalid update phase transition")
	}
}
