package fsm

import (
	"context"
	"errors"
	"slices"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Compile-time check: Graph implements domain.StatusGraph.
var _ domain.StatusGraph = (*Graph)(nil)

// events converts domain.Transitions into looplab/fsm EventDesc format.
// Transitions with the same event and destination collapse into one EventDesc
// with several sources (cancel is reachable from three statuses).
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range domain.Transitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Graph implements domain.StatusGraph on top of looplab/fsm.
// looplab/fsm is stateful, so every query runs against a short-lived machine
// seeded with the source status. The outgoing sets are discovered once in New
// and served from memory afterwards.
type Graph struct {
	targets map[domain.Status][]domain.Status
}

// New creates the reservation lifecycle graph.
func New() *Graph {
	g := &Graph{targets: make(map[domain.Status][]domain.Status)}
	ctx := context.Background()

	for _, src := range domain.StoredStatuses {
		machine := loopfsm.NewFSM(string(src), events, nil)
		var dsts []domain.Status
		for _, event := range machine.AvailableTransitions() {
			dst, err := g.Apply(ctx, src, domain.Event(event))
			if err != nil {
				continue
			}
			if !slices.Contains(dsts, dst) {
				dsts = append(dsts, dst)
			}
		}
		slices.Sort(dsts)
		g.targets[src] = dsts
	}
	return g
}

// Targets returns the statuses src may move to, sorted. Terminal and unknown
// statuses have none.
func (g *Graph) Targets(src domain.Status) []domain.Status {
	return slices.Clone(g.targets[src])
}

// IsTerminal reports whether s has no outgoing transitions.
func (g *Graph) IsTerminal(s domain.Status) bool {
	return len(g.targets[s]) == 0
}

// Allows reports whether src may move to dst. A status never transitions to itself.
func (g *Graph) Allows(src, dst domain.Status) bool {
	if src == dst {
		return false
	}
	return slices.Contains(g.targets[src], dst)
}

// Apply checks if the given event is valid from the current status and
// returns the destination status. Returns a domain.TransitionError if
// the transition is not allowed.
func (g *Graph) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		var unknownEvent loopfsm.UnknownEventError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) || errors.As(err, &unknownEvent) {
			return "", &domain.TransitionError{
				Event:   event,
				Current: current,
			}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}

// NextHop returns the first status on the shortest path from src to dst.
func (g *Graph) NextHop(src, dst domain.Status) (domain.Status, bool) {
	return domain.NextHop(g, src, dst)
}
