package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
	"github.com/MrSnakeDoc/bestmirror/internal/index"
)

func newTestStoreWithMockRedis() (*Store, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewStore(db), mock
}

func testSnapshot() index.Snapshot {
	return index.Snapshot{
		Ranking: domain.Ranking{
			{Endpoint: "a.example", Latency: 0.05},
			{Endpoint: "b.example", Latency: 0.1},
		},
		Results: []domain.ProbeResult{
			{Endpoint: "a.example", MeanLatency: 0.05, Status: domain.StatusMeasured, Successes: 5},
			{Endpoint: "b.example", MeanLatency: 0.1, Status: domain.StatusMeasured, Successes: 5},
			{Endpoint: "c.example", Status: domain.StatusSkipped, Failures: 2},
		},
		UpdatedAt: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_SaveSnapshot(t *testing.T) {
	store, mock := newTestStoreWithMockRedis()
	snap := testSnapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectSet(SnapshotKey(), string(data), DefaultSnapshotTTL).SetVal("OK")
	mock.ExpectDel(LatencyKey()).SetVal(1)
	mock.ExpectZAdd(LatencyKey(),
		redis.Z{Score: 0.05, Member: "https://a.example"},
		redis.Z{Score: 0.1, Member: "https://b.example"},
	).SetVal(2)
	mock.ExpectExpire(LatencyKey(), DefaultSnapshotTTL).SetVal(true)
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.SaveSnapshot(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveSnapshot_EmptyRanking(t *testing.T) {
	store, mock := newTestStoreWithMockRedis()
	snap := index.Snapshot{Ranking: domain.Ranking{}, UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectSet(SnapshotKey(), string(data), DefaultSnapshotTTL).SetVal("OK")
	mock.ExpectDel(LatencyKey()).SetVal(0)
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.SaveSnapshot(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetSnapshot(t *testing.T) {
	testCases := []struct {
		name      string
		mockSetup func(mock redismock.ClientMock)
		wantFound bool
		wantErr   bool
	}{
		{
			name: "found",
			mockSetup: func(mock redismock.ClientMock) {
				data, _ := json.Marshal(testSnapshot())
				mock.ExpectGet(SnapshotKey()).SetVal(string(data))
			},
			wantFound: true,
		},
		{
			name: "missing",
			mockSetup: func(mock redismock.ClientMock) {
				mock.ExpectGet(SnapshotKey()).RedisNil()
			},
		},
		{
			name: "redis error",
			mockSetup: func(mock redismock.ClientMock) {
				mock.ExpectGet(SnapshotKey()).SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name: "corrupt payload",
			mockSetup: func(mock redismock.ClientMock) {
				mock.ExpectGet(SnapshotKey()).SetVal("{not json")
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newTestStoreWithMockRedis()
			tc.mockSetup(mock)

			snap, found, err := store.GetSnapshot(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantFound, found)
			if tc.wantFound {
				want := testSnapshot()
				assert.Equal(t, want.Ranking, snap.Ranking)
				assert.Equal(t, want.Results, snap.Results)
				assert.True(t, want.UpdatedAt.Equal(snap.UpdatedAt))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_TopOrigins(t *testing.T) {
	store, mock := newTestStoreWithMockRedis()
	mock.ExpectZRange(LatencyKey(), 0, 1).SetVal([]string{"https://a.example", "https://b.example"})

	origins, err := store.TopOrigins(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, origins)

	empty, err := store.TopOrigins(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Ping(t *testing.T) {
	store, mock := newTestStoreWithMockRedis()
	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().SetErr(errors.New("down"))
	assert.Error(t, store.Ping(context.Background()))
}
