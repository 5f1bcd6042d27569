package sprint

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/ovaphlow/trident/service-board-go/internal/sprint/entity"
)

var (
	ErrOutOfDateRange    = errors.New("cannot start sprint outside of its date range")
	ErrInvalidTransition = errors.New("invalid sprint status transition")
)

// event names for the sprint machine
const (
	eventStart    = "start"
	eventComplete = "complete"
)

// fsmContext carries the temporal data the start guard evaluates.
type fsmContext struct {
	Now       time.Time
	StartDate time.Time
	EndDate   time.Time
}

// Transition validates moving a sprint from its current status to target at
// time now. PLANNED -> ACTIVE is guarded by startDate <= now <= endDate
// (inclusive bounds); ACTIVE -> COMPLETED is unguarded; everything else is
// invalid. COMPLETED is terminal. Returns nil when the move is legal.
func Transition(current entity.Status, target entity.Status, startDate, endDate, now time.Time) error {
	var event string
	switch target {
	case entity.StatusActive:
		event = eventStart
	case entity.StatusCompleted:
		event = eventComplete
	default:
		// no event ever targets PLANNED
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}

	builder := statekit.NewMachine[fsmContext]("sprint").
		WithInitial(statekit.StateID(current)).
		WithContext(fsmContext{Now: now, StartDate: startDate, EndDate: endDate}).
		WithGuard("withinDates", func(ctx fsmContext, e statekit.Event) bool {
			return !ctx.Now.Before(ctx.StartDate) && !ctx.Now.After(ctx.EndDate)
		})

	builder.State(statekit.StateID(entity.StatusPlanned)).
		On(eventStart).Target(statekit.StateID(entity.StatusActive)).Guard("withinDates").
		Done()

	builder.State(statekit.StateID(entity.StatusActive)).
		On(eventComplete).Target(statekit.StateID(entity.StatusCompleted)).
		Done()

	// terminal
	builder.State(statekit.StateID(entity.StatusCompleted)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build sprint state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()

	before := interpreter.State().Value
	interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := interpreter.State().Value

	if before != after {
		return nil
	}

	// State held: either the guard rejected the start or the event was not
	// legal for the current state.
	if current == entity.StatusPlanned && event == eventStart {
		return ErrOutOfDateRange
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
}
