package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cardflow/internal/ir"
)

func TestWriteFiring_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	f := createTestFiring(t, "a", "c1", 7)
	f.Applied = []ir.ActionKind{ir.ActionSetPriority, ir.ActionMarkCompleted}
	f.Skipped = []ir.SkippedAction{{Index: 1, Kind: ir.ActionMoveToColumn, Reason: `COLUMN_NOT_FOUND: column "gone" does not exist (card=c1)`}}
	f.Error = "PANIC: boom (card=c1)"

	inserted, err := s.WriteFiring(ctx, f)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadFirings(ctx, FiringFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f, got[0])
}

func TestWriteFiring_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFiring(t, "a", "c1", 1)

	inserted, err := s.WriteFiring(ctx, f)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.WriteFiring(ctx, f)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate id is ignored")

	n, err := s.CountFirings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWriteFiring_RequiresID(t *testing.T) {
	s := createTestStore(t)
	f := createTestFiring(t, "a", "c1", 1)
	f.ID = ""

	_, err := s.WriteFiring(context.Background(), f)
	assert.Error(t, err)
}

func TestWriteFiring_EmptyListsReadAsNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	f := createTestFiring(t, "a", "c1", 1)
	f.Applied = nil

	_, err := s.WriteFiring(ctx, f)
	require.NoError(t, err)

	got, err := s.ReadFirings(ctx, FiringFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Applied)
	assert.Nil(t, got[0].Skipped)
}

func TestReadFirings_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, seq := range []int64{3, 1, 2} {
		_, err := s.WriteFiring(ctx, createTestFiring(t, "a", "c1", seq))
		require.NoError(t, err)
	}

	got, err := s.ReadFirings(ctx, FiringFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, f := range got {
		assert.Equal(t, int64(i+1), f.Seq)
	}
}

func TestReadFirings_Filter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	other := createTestFiring(t, "b", "c2", 3)
	other.BoardID = "b2"
	for _, f := range []ir.Firing{
		createTestFiring(t, "a", "c1", 1),
		createTestFiring(t, "b", "c1", 2),
		other,
		createTestFiring(t, "a", "c2", 4),
	} {
		_, err := s.WriteFiring(ctx, f)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter FiringFilter
		seqs   []int64
	}{
		{"all", FiringFilter{}, []int64{1, 2, 3, 4}},
		{"card", FiringFilter{CardID: "c1"}, []int64{1, 2}},
		{"automation", FiringFilter{AutomationID: "a"}, []int64{1, 4}},
		{"board", FiringFilter{BoardID: "b2"}, []int64{3}},
		{"combined", FiringFilter{CardID: "c2", AutomationID: "a"}, []int64{4}},
		{"limit", FiringFilter{Limit: 2}, []int64{1, 2}},
		{"no match", FiringFilter{CardID: "c9"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ReadFirings(ctx, tt.filter)
			require.NoError(t, err)
			seqs := []int64{}
			for _, f := range got {
				seqs = append(seqs, f.Seq)
			}
			assert.Equal(t, tt.seqs, seqs)
		})
	}
}

func TestLastFiringSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastFiringSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	for _, n := range []int64{4, 9, 2} {
		_, err := s.WriteFiring(ctx, createTestFiring(t, "a", "c1", n))
		require.NoError(t, err)
	}

	seq, err = s.LastFiringSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), seq)
}

func TestRecorder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := s.Recorder(ctx)

	f := createTestFiring(t, "a", "c1", 1)
	r.Record(f)
	r.Record(f)

	bad := createTestFiring(t, "a", "c1", 2)
	bad.ID = ""
	r.Record(bad)

	n, err := s.CountFirings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "duplicates and failures never reach the log")
}

func TestFiringTimesStoredInUTC(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	f := createTestFiring(t, "a", "c1", 1)
	f.At = time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	_, err := s.WriteFiring(ctx, f)
	require.NoError(t, err)

	got, err := s.ReadFirings(ctx, FiringFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, f.At.Equal(got[0].At))
	assert.Equal(t, time.UTC, got[0].At.Location())
}
