package cascade

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// State of an event node. Cancellation is sticky: re-activation is an
// explicit separate operation, never part of a cascade.
type State string

const (
	StateActive    State = "active"
	StateCancelled State = "cancelled"
)

// NodeKind places a node in the series graph.
type NodeKind string

const (
	// KindMaster is the series master owning the recurrence rule.
	KindMaster NodeKind = "master"
	// KindException is a persisted override of one occurrence.
	KindException NodeKind = "exception"
	// KindAttendeeCopy mirrors an event on a non-organizer attendee's
	// calendar, tracking its own response state.
	KindAttendeeCopy NodeKind = "attendee_copy"
)

var (
	ErrNodeNotFound  = errors.New("cascade: node not found")
	ErrDuplicateNode = errors.New("cascade: duplicate node id")
	ErrBadParent     = errors.New("cascade: invalid parent link")
)

// Node is one event in the series graph: the master, an exception, or an
// attendee copy of either.
type Node struct {
	ID     uuid.UUID
	Kind   NodeKind
	State  State
	Parent mo.Option[uuid.UUID]

	// Attendee is the related-attendee identity of an attendee copy;
	// empty for other kinds.
	Attendee string
}

// Tree is an arena of nodes with parent/child indices. It replaces
// back-referencing object graphs: traversals work over ids, and the caller
// persists resulting state changes itself.
type Tree struct {
	nodes    map[uuid.UUID]Node
	children map[uuid.UUID][]uuid.UUID
}

// NewTree creates an empty node arena.
func NewTree() *Tree {
	return &Tree{
		nodes:    make(map[uuid.UUID]Node),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Add inserts a node. Parents must be added before their children; an
// exception hangs off a master, an attendee copy off a master or an
// exception.
func (t *Tree) Add(n Node) error {
	if _, exists := t.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}

	if parentID, ok := n.Parent.Get(); ok {
		parent, exists := t.nodes[parentID]
		if !exists {
			return fmt.Errorf("%w: parent %s of %s not in tree", ErrBadParent, parentID, n.ID)
		}
		switch n.Kind {
		case KindException:
			if parent.Kind != KindMaster {
				return fmt.Errorf("%w: exception %s must hang off a master", ErrBadParent, n.ID)
			}
		case KindAttendeeCopy:
			if parent.Kind == KindAttendeeCopy {
				return fmt.Errorf("%w: attendee copy %s cannot parent another copy", ErrBadParent, n.ID)
			}
		case KindMaster:
			return fmt.Errorf("%w: master %s cannot have a parent", ErrBadParent, n.ID)
		}
		t.children[parentID] = append(t.children[parentID], n.ID)
	} else if n.Kind != KindMaster {
		return fmt.Errorf("%w: %s node %s requires a parent", ErrBadParent, n.Kind, n.ID)
	}

	t.nodes[n.ID] = n
	return nil
}

// Node returns the node with the given id.
func (t *Tree) Node(id uuid.UUID) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Children returns the direct children of a node in insertion order.
func (t *Tree) Children(id uuid.UUID) []uuid.UUID {
	return t.children[id]
}
