package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/rsvp/internal/domain"
)

var _ domain.TransitionValidator = (*Validator)(nil)

// lifecycle is the reservation lifecycle in looplab/fsm form. Transitions
// sharing an event and a destination collapse into one EventDesc.
var lifecycle = toEventDescs(domain.Transitions)

func toEventDescs(transitions []domain.Transition) []loopfsm.EventDesc {
	var descs []loopfsm.EventDesc
	index := make(map[string]int, len(transitions))

	for _, t := range transitions {
		name, dst := string(t.Event), t.Dst.String()
		if i, ok := index[name+"->"+dst]; ok {
			descs[i].Src = append(descs[i].Src, t.Src.String())
			continue
		}
		index[name+"->"+dst] = len(descs)
		descs = append(descs, loopfsm.EventDesc{Name: name, Src: []string{t.Src.String()}, Dst: dst})
	}
	return descs
}

// Validator resolves status transitions with looplab/fsm. The library's
// machines are stateful, so Apply seeds a fresh one with the current status.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Apply returns the status that event leads to from current. Events the
// lifecycle does not allow yield a *domain.TransitionError.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	m := loopfsm.NewFSM(current.String(), lifecycle, nil)

	err := m.Event(ctx, string(event))
	switch {
	case err == nil:
		return domain.ParseStatus(m.Current())
	case rejected(err):
		return domain.StatusUnknown, &domain.TransitionError{Event: event, Current: current}
	default:
		return domain.StatusUnknown, err
	}
}

func rejected(err error) bool {
	var (
		invalid      loopfsm.InvalidEventError
		unknown      loopfsm.UnknownEventError
		noTransition loopfsm.NoTransitionError
	)
	return errors.As(err, &invalid) || errors.As(err, &unknown) || errors.As(err, &noTransition)
}
