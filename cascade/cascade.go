package cascade

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Op is the user action driving a cascade. Cancel and Delete propagate the
// same Cancelled state through the tree; what differs is what the caller
// does with the affected rows afterwards.
type Op string

const (
	OpCancel Op = "cancel"
	OpDelete Op = "delete"
)

// ErrUnknownOp is returned for an operation outside the Cancel/Delete set.
var ErrUnknownOp = errors.New("cascade: unknown operation")

// AttendeeDetach instructs the caller to remove an attendee identity from
// a parent's attendee set after its copy was cancelled directly.
type AttendeeDetach struct {
	ParentID uuid.UUID
	Attendee string
}

// Change is one node state transition produced by a cascade. The tree is
// never mutated; the caller applies and persists each change.
type Change struct {
	NodeID   uuid.UUID
	NewState State
	Detach   mo.Option[AttendeeDetach]
}

// Cascade computes the set of state changes caused by cancelling or
// deleting a node:
//
//   - a master cascades Cancelled to every exception and to every attendee
//     copy of the master and of its exceptions;
//   - an exception cascades to its own attendee copies only, leaving
//     sibling exceptions and the master untouched;
//   - an attendee copy cancels only itself and detaches its attendee from
//     the parent's attendee set.
//
// Nodes already Cancelled are skipped: repeating a cascade is a no-op, not
// an error.
func (t *Tree) Cascade(id uuid.UUID, op Op) ([]Change, error) {
	if op != OpCancel && op != OpDelete {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}
	target, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	var changes []Change
	switch target.Kind {
	case KindAttendeeCopy:
		if target.State == StateCancelled {
			return nil, nil
		}
		change := Change{NodeID: target.ID, NewState: StateCancelled}
		if parentID, hasParent := target.Parent.Get(); hasParent && target.Attendee != "" {
			change.Detach = mo.Some(AttendeeDetach{ParentID: parentID, Attendee: target.Attendee})
		}
		changes = append(changes, change)
	default:
		changes = t.cancelSubtree(target.ID, changes)
	}
	return changes, nil
}

// cancelSubtree walks the node and everything below it, emitting a change
// for each node not already cancelled.
func (t *Tree) cancelSubtree(id uuid.UUID, changes []Change) []Change {
	if n := t.nodes[id]; n.State != StateCancelled {
		changes = append(changes, Change{NodeID: id, NewState: StateCancelled})
	}
	for _, childID := range t.children[id] {
		changes = t.cancelSubtree(childID, changes)
	}
	return changes
}

// Reactivate computes the explicit Cancelled to Active transition for a
// single node. It never cascades. Reactivating an active node is a no-op.
func (t *Tree) Reactivate(id uuid.UUID) ([]Change, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if n.State == StateActive {
		return nil, nil
	}
	return []Change{{NodeID: id, NewState: StateActive}}, nil
}
