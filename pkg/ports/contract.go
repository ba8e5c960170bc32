package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newSession := func(id string) *domain.Session {
		return &domain.Session{
			ID:                   id,
			RouteID:              "corridor",
			Mode:                 domain.ModeSteps,
			Active:               true,
			CurrentWaypointIndex: 2,
			TotalWaypoints:       4,
			CurrentStepCount:     7,
			Epoch:                5,
			Generation:           1,
			StartedAt:            time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			UpdatedAt:            time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		// 1. Create a snapshot
		session := newSession(sessionID)

		// 2. Save
		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		// 3. Load
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.RouteID, loaded.RouteID)
		assert.Equal(t, session.Mode, loaded.Mode)
		assert.Equal(t, session.CurrentWaypointIndex, loaded.CurrentWaypointIndex)
		assert.Equal(t, session.CurrentStepCount, loaded.CurrentStepCount)
		assert.Equal(t, session.Epoch, loaded.Epoch)
		assert.True(t, session.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		session := newSession(sessionID)
		session.CurrentWaypointIndex = 3
		session.Active = false
		require.NoError(t, store.Save(ctx, sessionID, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.CurrentWaypointIndex)
		assert.False(t, loaded.Active)
	})

	t.Run("Delete", func(t *testing.T) {
		// Setup
		err := store.Save(ctx, sessionID, newSession(sessionID))
		require.NoError(t, err)

		// Delete
		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		// Verify gone
		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		// Setup: Create 2 sessions
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, newSession(id1))
		_ = store.Save(ctx, id2, newSession(id2))

		// Ensure cleanup
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		// List
		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunRouteRepositoryContract verifies a RouteRepository that was seeded with
// the given routes.
func RunRouteRepositoryContract(t *testing.T, repo RouteRepository, seeded []*domain.Route) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetRoute_Success", func(t *testing.T) {
		for _, want := range seeded {
			got, err := repo.GetRoute(ctx, want.ID)
			require.NoError(t, err, "route %s", want.ID)
			assert.Equal(t, want.ID, got.ID)
			assert.Equal(t, want.Name, got.Name)
			require.Len(t, got.Waypoints, len(want.Waypoints))
			for i, w := range want.Waypoints {
				assert.Equal(t, w.ID, got.Waypoints[i].ID)
				assert.Equal(t, i, got.Waypoints[i].Order)
				assert.Equal(t, w.Instruction, got.Waypoints[i].Instruction)
				assert.Equal(t, w.TargetHeading, got.Waypoints[i].TargetHeading)
				assert.Equal(t, w.RequiredSteps, got.Waypoints[i].RequiredSteps)
			}
		}
	})

	t.Run("GetRoute_NotFound", func(t *testing.T) {
		_, err := repo.GetRoute(ctx, "non-existent-route")
		assert.ErrorIs(t, err, domain.ErrRouteNotFound)
	})

	t.Run("ListRoutes", func(t *testing.T) {
		ids, err := repo.ListRoutes(ctx)
		require.NoError(t, err)
		for _, r := range seeded {
			assert.Contains(t, ids, r.ID)
		}
	})

	t.Run("Returned routes are copies", func(t *testing.T) {
		if len(seeded) == 0 || len(seeded[0].Waypoints) == 0 {
			t.Skip("needs a seeded route with waypoints")
		}
		got, err := repo.GetRoute(ctx, seeded[0].ID)
		require.NoError(t, err)
		got.Waypoints[0].Instruction = "mutated"

		again, err := repo.GetRoute(ctx, seeded[0].ID)
		require.NoError(t, err)
		assert.Equal(t, seeded[0].Waypoints[0].Instruction, again.Waypoints[0].Instruction)
	})
}
