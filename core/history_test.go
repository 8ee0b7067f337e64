package core

import (
	"errors"
	"testing"
	"time"

	"github.com/huangsam/migdelta/internal/iocache"
	"github.com/huangsam/migdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	result := schema.Result{
		"shop.widget": {Status: schema.CreatedStatus, Added: []string{"id"}, Removed: []string{}},
		"blog.post":   {Status: schema.DeletedStatus, Added: []string{}, Removed: []string{}},
	}
	cfg := testConfig([]string{"a.py", "b.py"})

	t.Run("nil manager", func(t *testing.T) {
		recordRun(nil, cfg, time.Now(), 2, result)
	})

	t.Run("history disabled", func(t *testing.T) {
		mgr := &iocache.MockCacheManager{}
		mgr.On("GetHistoryStore").Return(nil)
		recordRun(mgr, cfg, time.Now(), 2, result)
		mgr.AssertExpectations(t)
	})

	t.Run("records every model in order", func(t *testing.T) {
		store := &iocache.MockHistoryStore{}
		store.On("BeginRun", mock.Anything, cfg.Params()).Return(int64(3), nil)
		first := store.On("RecordModelChange", int64(3), "blog.post", result["blog.post"]).Return(nil)
		store.On("RecordModelChange", int64(3), "shop.widget", result["shop.widget"]).Return(nil).NotBefore(first)
		store.On("EndRun", int64(3), mock.Anything, 2, 2).Return(nil)

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetHistoryStore").Return(store)
		recordRun(mgr, cfg, time.Now(), 2, result)
		store.AssertExpectations(t)
	})

	t.Run("begin failure only warns", func(t *testing.T) {
		store := &iocache.MockHistoryStore{}
		store.On("BeginRun", mock.Anything, mock.Anything).Return(int64(0), errors.New("locked"))

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetHistoryStore").Return(store)
		recordRun(mgr, cfg, time.Now(), 2, result)
		store.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("sqlite store", func(t *testing.T) {
		store, err := iocache.NewHistoryStore(schema.SQLiteBackend, ":memory:")
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		mgr := &iocache.MockCacheManager{}
		mgr.On("GetHistoryStore").Return(store)
		recordRun(mgr, cfg, time.Now().Add(-time.Second), 2, result)

		runs, err := store.GetAllRuns()
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, int32(2), runs[0].TotalFiles)
		assert.Equal(t, int32(2), runs[0].TotalModels)

		changes, err := store.GetAllModelChanges()
		require.NoError(t, err)
		require.Len(t, changes, 2)
		assert.Equal(t, "blog.post", changes[0].Model)
	})
}
