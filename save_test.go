/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sti_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/sti"
	"github.com/suparena/sti/datastore/mock"
	"github.com/suparena/sti/errors"
	"github.com/suparena/sti/events"
)

var fixedStamp = strfmt.DateTime(fixedNow).String()

func recordEvents(repo *sti.Repository, names ...events.Event) *[]events.Event {
	var seen []events.Event
	for _, name := range names {
		name := name
		repo.Events().Observe(name, func(context.Context, sti.Entity) {
			seen = append(seen, name)
		})
	}
	return &seen
}

func TestSaveInsert(t *testing.T) {
	ctx := context.Background()
	engine := mock.New()
	repo := newWidgetRepo(t, engine)
	seen := recordEvents(repo, events.Saving, events.Creating, events.Created, events.Updating, events.Saved)

	e, err := repo.New("active")
	require.NoError(t, err)
	e.Set("id", 10)
	e.Set("name", "gear")

	saved, err := repo.Save(ctx, e)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, e.Exists())
	assert.False(t, e.(*WidgetActive).IsDirty())
	assert.Equal(t, []events.Event{events.Saving, events.Creating, events.Created, events.Saved}, *seen)

	row, ok := engine.Row("widgets", 10)
	require.True(t, ok)
	assert.Equal(t, "active", row["status"])
	assert.Equal(t, fixedStamp, row["created_at"])
	assert.Equal(t, fixedStamp, row["updated_at"])

	ts, ok := e.(*WidgetActive).Timestamp("created_at")
	require.True(t, ok)
	assert.True(t, fixedNow.Equal(time.Time(ts)))
}

func TestSaveCancelledBySavingListener(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)
	repo.Events().Listen(events.Saving, func(context.Context, sti.Entity) bool { return false })

	fresh, err := repo.New("new")
	require.NoError(t, err)
	fresh.Set("id", 99)

	saved, err := repo.Save(ctx, fresh)
	assert.NoError(t, err)
	assert.False(t, saved)
	assert.False(t, fresh.Exists())
	assert.Equal(t, 3, engine.Count("widgets"))

	existing, err := repo.Find(ctx, 2)
	require.NoError(t, err)
	existing.Set("name", "changed")

	saved, err = repo.Save(ctx, existing)
	assert.NoError(t, err)
	assert.False(t, saved)
	assert.True(t, existing.Exists())
	assert.Empty(t, engine.Updates())
}

func TestSaveCancelledByCreatingListener(t *testing.T) {
	ctx := context.Background()
	engine := mock.New()
	repo := newWidgetRepo(t, engine)
	repo.Events().Listen(events.Creating, func(context.Context, sti.Entity) bool { return false })
	seen := recordEvents(repo, events.Saved)

	e, err := repo.New("new")
	require.NoError(t, err)
	e.Set("id", 1)

	saved, err := repo.Save(ctx, e)
	assert.NoError(t, err)
	assert.False(t, saved)
	assert.False(t, e.Exists())
	assert.Empty(t, *seen)
	assert.Zero(t, engine.Count("widgets"))
}

func TestSaveUpdateSendsDirtyAttributes(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)
	seen := recordEvents(repo, events.Saving, events.Creating, events.Updating, events.Updated, events.Saved)

	e, err := repo.Find(ctx, 2)
	require.NoError(t, err)
	e.Set("name", "sprocket")

	saved, err := repo.Save(ctx, e)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Equal(t, []events.Event{events.Saving, events.Updating, events.Updated, events.Saved}, *seen)

	updates := engine.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, 2, updates[0].Key)
	assert.Equal(t, sti.Row{"name": "sprocket", "updated_at": fixedStamp}, updates[0].Attrs)
	assert.False(t, e.(*WidgetActive).IsDirty())

	row, _ := engine.Row("widgets", 2)
	assert.Equal(t, "sprocket", row["name"])
}

func TestSaveWithoutChanges(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)

	e, err := repo.Find(ctx, 1)
	require.NoError(t, err)

	saved, err := repo.Save(ctx, e)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.Empty(t, engine.Updates())
}

func TestSaveDoesNotResolveAgain(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)

	e, err := repo.Find(ctx, 2)
	require.NoError(t, err)
	e.Set("status", "archived")

	saved, err := repo.Save(ctx, e)
	require.NoError(t, err)
	assert.True(t, saved)
	assert.IsType(t, &WidgetActive{}, e)

	row, _ := engine.Row("widgets", 2)
	assert.Equal(t, "archived", row["status"])
}

func TestSaveEngineFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("insert", func(t *testing.T) {
		engine := mock.New().WithInsertError(errors.NewConditionFailedError("insert", "offline"))
		repo := newWidgetRepo(t, engine)

		e, err := repo.New("new")
		require.NoError(t, err)
		e.Set("id", 1)

		saved, err := repo.Save(ctx, e)
		assert.False(t, saved)
		assert.True(t, errors.IsConditionFailed(err))
		assert.False(t, e.Exists())
		assert.Nil(t, e.Get("created_at"), "stamps are rolled back")
		assert.Nil(t, e.Get("updated_at"))
		assert.Equal(t, sti.Row{"id": 1, "status": "new"}, e.Attributes())
	})

	t.Run("insert with generated key", func(t *testing.T) {
		engine := mock.New().WithInsertError(errors.NewConditionFailedError("insert", "offline"))
		schema := widgetSchema()
		schema.KeyType = sti.KeyUUID
		repo, err := sti.NewRepository(schema, widgetResolver(t), engine)
		require.NoError(t, err)

		e, err := repo.New("new")
		require.NoError(t, err)

		saved, err := repo.Save(ctx, e)
		assert.False(t, saved)
		assert.Error(t, err)
		assert.False(t, e.(*WidgetNew).Has("id"), "generated key is rolled back")
	})

	t.Run("duplicate key", func(t *testing.T) {
		repo := newWidgetRepo(t, seededEngine())

		e, err := repo.New("new")
		require.NoError(t, err)
		e.Set("id", 1)

		saved, err := repo.Save(ctx, e)
		assert.False(t, saved)
		assert.True(t, errors.IsAlreadyExists(err))
		assert.False(t, e.Exists())
	})

	t.Run("update", func(t *testing.T) {
		engine := seededEngine()
		repo := newWidgetRepo(t, engine)

		e, err := repo.Find(ctx, 2)
		require.NoError(t, err)
		e.Set("name", "x")

		engine.WithUpdateError(errors.NewConditionFailedError("update", "offline"))
		saved, err := repo.Save(ctx, e)
		assert.False(t, saved)
		assert.True(t, errors.IsConditionFailed(err))
		assert.True(t, e.Exists())
		assert.True(t, e.(*WidgetActive).IsDirty("name"))
		assert.False(t, e.(*WidgetActive).IsDirty("updated_at"), "update stamp is rolled back")
	})
}

func TestSaveGeneratesUUIDKey(t *testing.T) {
	engine := mock.New()
	schema := widgetSchema()
	schema.KeyType = sti.KeyUUID
	repo, err := sti.NewRepository(schema, widgetResolver(t), engine)
	require.NoError(t, err)

	e, err := repo.New("new")
	require.NoError(t, err)

	saved, err := repo.Save(context.Background(), e)
	require.NoError(t, err)
	assert.True(t, saved)

	key, ok := e.Get("id").(string)
	require.True(t, ok)
	_, err = uuid.Parse(key)
	assert.NoError(t, err)
	assert.Equal(t, 1, engine.Count("widgets"))
}

func TestSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)
	seen := recordEvents(repo, events.Deleting, events.Deleted, events.Restoring, events.Restored)

	e, err := repo.Find(ctx, 2)
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, e)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.True(t, repo.Trashed(e))
	assert.False(t, e.(*WidgetActive).IsDirty())

	row, ok := engine.Row("widgets", 2)
	require.True(t, ok, "soft delete keeps the row")
	assert.Equal(t, fixedStamp, row["deleted_at"])

	_, err = repo.Find(ctx, 2)
	assert.True(t, errors.IsNotFound(err))

	restored, err := repo.Restore(ctx, e)
	require.NoError(t, err)
	assert.True(t, restored)
	assert.False(t, repo.Trashed(e))

	_, err = repo.Find(ctx, 2)
	assert.NoError(t, err)
	assert.Equal(t, []events.Event{events.Deleting, events.Deleted, events.Restoring, events.Restored}, *seen)
}

func TestRestoreCancelledKeepsStamp(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)

	e, err := repo.Find(ctx, 2)
	require.NoError(t, err)
	deleted, err := repo.Delete(ctx, e)
	require.NoError(t, err)
	require.True(t, deleted)

	repo.Events().Listen(events.Saving, func(context.Context, sti.Entity) bool { return false })

	restored, err := repo.Restore(ctx, e)
	require.NoError(t, err)
	assert.False(t, restored)
	assert.True(t, repo.Trashed(e), "instance still carries the stamp")
	assert.Equal(t, fixedStamp, e.Get("deleted_at"))
	assert.False(t, e.(*WidgetActive).IsDirty())

	row, ok := engine.Row("widgets", 2)
	require.True(t, ok)
	assert.Equal(t, fixedStamp, row["deleted_at"])
}

func TestRestoreFailedKeepsStamp(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)

	e, err := repo.Find(ctx, 2)
	require.NoError(t, err)
	_, err = repo.Delete(ctx, e)
	require.NoError(t, err)

	engine.WithUpdateError(errors.NewConditionFailedError("update", "offline"))
	restored, err := repo.Restore(ctx, e)
	assert.False(t, restored)
	assert.True(t, errors.IsConditionFailed(err))
	assert.True(t, repo.Trashed(e))
}

func TestRestoreNewEntityIsNoop(t *testing.T) {
	ctx := context.Background()
	engine := mock.New()
	repo := newWidgetRepo(t, engine)
	seen := recordEvents(repo, events.Restoring, events.Saving)

	e, err := repo.New("active")
	require.NoError(t, err)
	e.Set("id", 99)

	restored, err := repo.Restore(ctx, e)
	require.NoError(t, err)
	assert.False(t, restored)
	assert.False(t, e.Exists())
	assert.Equal(t, 0, engine.Count("widgets"), "restore never inserts")
	assert.Empty(t, *seen)
}

func TestForceDelete(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)

	e, err := repo.Find(ctx, 1)
	require.NoError(t, err)

	deleted, err := repo.ForceDelete(ctx, e)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, e.Exists())
	assert.Equal(t, 2, engine.Count("widgets"))

	again, err := repo.Delete(ctx, e)
	assert.NoError(t, err)
	assert.False(t, again)
}

func TestDeleteWithoutSoftDelete(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	schema := widgetSchema()
	schema.SoftDelete = false
	repo, err := sti.NewRepository(schema, widgetResolver(t), engine)
	require.NoError(t, err)

	e, err := repo.Find(ctx, 3)
	require.NoError(t, err, "without soft delete the stamp is ignored")

	deleted, err := repo.Delete(ctx, e)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 2, engine.Count("widgets"))
	assert.False(t, repo.Trashed(e))

	_, err = repo.Restore(ctx, e)
	assert.True(t, errors.IsValidationError(err))
}

func TestDeleteCancelledAndFailed(t *testing.T) {
	ctx := context.Background()
	engine := seededEngine()
	repo := newWidgetRepo(t, engine)

	e, err := repo.Find(ctx, 1)
	require.NoError(t, err)

	engine.WithUpdateError(errors.NewConditionFailedError("update", "offline"))
	deleted, err := repo.Delete(ctx, e)
	assert.False(t, deleted)
	assert.True(t, errors.IsConditionFailed(err))
	assert.False(t, repo.Trashed(e))

	repo.Events().Listen(events.Deleting, func(context.Context, sti.Entity) bool { return false })
	deleted, err = repo.ForceDelete(ctx, e)
	assert.NoError(t, err)
	assert.False(t, deleted)
	assert.True(t, e.Exists())
	assert.Equal(t, 3, engine.Count("widgets"))
}
