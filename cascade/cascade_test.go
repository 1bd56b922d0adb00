package cascade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture builds a master with two exceptions, one attendee copy on the
// master and one on each exception.
type fixture struct {
	tree           *Tree
	master         uuid.UUID
	exceptionA     uuid.UUID
	exceptionB     uuid.UUID
	masterCopy     uuid.UUID
	exceptionACopy uuid.UUID
	exceptionBCopy uuid.UUID
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	f := fixture{
		tree:           NewTree(),
		master:         uuid.New(),
		exceptionA:     uuid.New(),
		exceptionB:     uuid.New(),
		masterCopy:     uuid.New(),
		exceptionACopy: uuid.New(),
		exceptionBCopy: uuid.New(),
	}

	require.NoError(t, f.tree.Add(Node{ID: f.master, Kind: KindMaster, State: StateActive}))
	require.NoError(t, f.tree.Add(Node{
		ID: f.exceptionA, Kind: KindException, State: StateActive, Parent: mo.Some(f.master),
	}))
	require.NoError(t, f.tree.Add(Node{
		ID: f.exceptionB, Kind: KindException, State: StateActive, Parent: mo.Some(f.master),
	}))
	require.NoError(t, f.tree.Add(Node{
		ID: f.masterCopy, Kind: KindAttendeeCopy, State: StateActive,
		Parent: mo.Some(f.master), Attendee: "bea@example.com",
	}))
	require.NoError(t, f.tree.Add(Node{
		ID: f.exceptionACopy, Kind: KindAttendeeCopy, State: StateActive,
		Parent: mo.Some(f.exceptionA), Attendee: "bea@example.com",
	}))
	require.NoError(t, f.tree.Add(Node{
		ID: f.exceptionBCopy, Kind: KindAttendeeCopy, State: StateActive,
		Parent: mo.Some(f.exceptionB), Attendee: "carl@example.com",
	}))
	return f
}

func changedIDs(changes []Change) map[uuid.UUID]State {
	out := make(map[uuid.UUID]State, len(changes))
	for _, c := range changes {
		out[c.NodeID] = c.NewState
	}
	return out
}

func TestCascadeMasterCancelsEverything(t *testing.T) {
	f := newFixture(t)

	changes, err := f.tree.Cascade(f.master, OpDelete)
	require.NoError(t, err)
	require.Len(t, changes, 6)

	ids := changedIDs(changes)
	for _, id := range []uuid.UUID{
		f.master, f.exceptionA, f.exceptionB, f.masterCopy, f.exceptionACopy, f.exceptionBCopy,
	} {
		assert.Equal(t, StateCancelled, ids[id])
	}
	for _, c := range changes {
		assert.True(t, c.Detach.IsAbsent(), "a master cascade never detaches attendees")
	}
}

func TestCascadeExceptionSparesSiblingsAndMaster(t *testing.T) {
	f := newFixture(t)

	changes, err := f.tree.Cascade(f.exceptionA, OpCancel)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	ids := changedIDs(changes)
	assert.Equal(t, StateCancelled, ids[f.exceptionA])
	assert.Equal(t, StateCancelled, ids[f.exceptionACopy])
	assert.NotContains(t, ids, f.master)
	assert.NotContains(t, ids, f.exceptionB)
	assert.NotContains(t, ids, f.exceptionBCopy)
	assert.NotContains(t, ids, f.masterCopy)
}

func TestCascadeAttendeeCopyOnlyCancelsItself(t *testing.T) {
	f := newFixture(t)

	changes, err := f.tree.Cascade(f.masterCopy, OpCancel)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	assert.Equal(t, f.masterCopy, changes[0].NodeID)
	assert.Equal(t, StateCancelled, changes[0].NewState)
	detach, ok := changes[0].Detach.Get()
	require.True(t, ok)
	assert.Equal(t, f.master, detach.ParentID)
	assert.Equal(t, "bea@example.com", detach.Attendee)
}

func TestCascadeIdempotentOnCancelledNodes(t *testing.T) {
	f := newFixture(t)

	first, err := f.tree.Cascade(f.masterCopy, OpCancel)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The tree is immutable; simulate the applied state and repeat.
	applied := NewTree()
	require.NoError(t, applied.Add(Node{ID: f.master, Kind: KindMaster, State: StateActive}))
	require.NoError(t, applied.Add(Node{
		ID: f.masterCopy, Kind: KindAttendeeCopy, State: StateCancelled,
		Parent: mo.Some(f.master), Attendee: "bea@example.com",
	}))

	again, err := applied.Cascade(f.masterCopy, OpCancel)
	require.NoError(t, err)
	assert.Empty(t, again, "cancelling a cancelled node is a no-op")
}

func TestCascadeMasterSkipsAlreadyCancelledButReachesTheirChildren(t *testing.T) {
	master := uuid.New()
	exception := uuid.New()
	copyID := uuid.New()

	tree := NewTree()
	require.NoError(t, tree.Add(Node{ID: master, Kind: KindMaster, State: StateActive}))
	require.NoError(t, tree.Add(Node{
		ID: exception, Kind: KindException, State: StateCancelled, Parent: mo.Some(master),
	}))
	require.NoError(t, tree.Add(Node{
		ID: copyID, Kind: KindAttendeeCopy, State: StateActive,
		Parent: mo.Some(exception), Attendee: "dee@example.com",
	}))

	changes, err := tree.Cascade(master, OpDelete)
	require.NoError(t, err)

	ids := changedIDs(changes)
	assert.NotContains(t, ids, exception, "already cancelled nodes emit no change")
	assert.Equal(t, StateCancelled, ids[master])
	assert.Equal(t, StateCancelled, ids[copyID])
}

func TestCascadeErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.tree.Cascade(uuid.New(), OpCancel)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = f.tree.Cascade(f.master, Op("archive"))
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestReactivate(t *testing.T) {
	master := uuid.New()
	tree := NewTree()
	require.NoError(t, tree.Add(Node{ID: master, Kind: KindMaster, State: StateCancelled}))

	changes, err := tree.Reactivate(master)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, StateActive, changes[0].NewState)

	active := NewTree()
	require.NoError(t, active.Add(Node{ID: master, Kind: KindMaster, State: StateActive}))
	changes, err = active.Reactivate(master)
	require.NoError(t, err)
	assert.Empty(t, changes)

	_, err = tree.Reactivate(uuid.New())
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestTreeAddValidation(t *testing.T) {
	master := uuid.New()
	tree := NewTree()
	require.NoError(t, tree.Add(Node{ID: master, Kind: KindMaster, State: StateActive}))

	t.Run("duplicate id", func(t *testing.T) {
		err := tree.Add(Node{ID: master, Kind: KindMaster})
		assert.ErrorIs(t, err, ErrDuplicateNode)
	})

	t.Run("unknown parent", func(t *testing.T) {
		err := tree.Add(Node{
			ID: uuid.New(), Kind: KindException, Parent: mo.Some(uuid.New()),
		})
		assert.ErrorIs(t, err, ErrBadParent)
	})

	t.Run("non-master without parent", func(t *testing.T) {
		err := tree.Add(Node{ID: uuid.New(), Kind: KindException})
		assert.ErrorIs(t, err, ErrBadParent)
	})

	t.Run("exception under exception", func(t *testing.T) {
		exception := uuid.New()
		require.NoError(t, tree.Add(Node{
			ID: exception, Kind: KindException, Parent: mo.Some(master),
		}))
		err := tree.Add(Node{
			ID: uuid.New(), Kind: KindException, Parent: mo.Some(exception),
		})
		assert.ErrorIs(t, err, ErrBadParent)
	})

	t.Run("copy under copy", func(t *testing.T) {
		copyID := uuid.New()
		require.NoError(t, tree.Add(Node{
			ID: copyID, Kind: KindAttendeeCopy, Parent: mo.Some(master), Attendee: "x",
		}))
		err := tree.Add(Node{
			ID: uuid.New(), Kind: KindAttendeeCopy, Parent: mo.Some(copyID), Attendee: "y",
		})
		assert.ErrorIs(t, err, ErrBadParent)
	})

	t.Run("master with parent", func(t *testing.T) {
		err := tree.Add(Node{ID: uuid.New(), Kind: KindMaster, Parent: mo.Some(master)})
		assert.ErrorIs(t, err, ErrBadParent)
	})
}
