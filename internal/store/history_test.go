package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animfsm/internal/reconcile"
)

func TestRecordSync_ListOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, ref := range []string{"door", "hinge", "door"} {
		rep := reconcile.Report{Ref: ref, Hash: "h", StatesAdded: i}
		seq, err := s.RecordSync(ctx, "run-0001", rep, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), seq)
	}

	all, err := s.ListSyncs(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})

	doors, err := s.ListSyncs(ctx, "door", 0)
	require.NoError(t, err)
	require.Len(t, doors, 2)
	assert.Equal(t, 2, doors[1].Report.StatesAdded)

	latest, err := s.ListSyncs(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(2), latest[0].Seq, "newest runs, oldest first")
	assert.Equal(t, int64(3), latest[1].Seq)
}

func TestRecordSync_Error(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.RecordSync(ctx, "run-0002", reconcile.Report{Ref: "door"}, errors.New("boom"))
	require.NoError(t, err)

	runs, err := s.ListSyncs(ctx, "door", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Equal(t, "run-0002", runs[0].RunID)
}

func TestListSyncs_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListSyncs(context.Background(), "", 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
