package services

import (
	"testing"

	"flow-pantry-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournament(t *testing.T) {
	env := setupTestEnv(t)

	tour, err := env.tournaments.CreateTournament(env.ctx, "host", map[string]any{
		"name":     "  Café Classic ",
		"date":     "2025-04-01",
		"location": "Boston",
		"isPublic": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Café Classic", tour.Name)
	assert.Equal(t, "cafe-classic", tour.Slug)
	assert.Equal(t, models.StringList{}, tour.Flows)
	assert.Equal(t, models.StringList{"host"}, tour.Participants)
	assert.Equal(t, "host", tour.CreatedBy)
	assert.True(t, tour.IsPublic)

	bySlug, err := env.tournaments.GetTournamentBySlug(env.ctx, "cafe-classic")
	require.NoError(t, err)
	assert.Equal(t, tour.ID, bySlug.ID)

	_, err = env.tournaments.GetTournamentBySlug(env.ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = env.tournaments.CreateTournament(env.ctx, "host", map[string]any{"name": "  "})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = env.tournaments.CreateTournament(env.ctx, "host", map[string]any{"name": "X", "date": "soon"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestListTournaments(t *testing.T) {
	env := setupTestEnv(t)
	early, err := env.tournaments.CreateTournament(env.ctx, "u1", map[string]any{"name": "Bravo", "date": "2025-01-05"})
	require.NoError(t, err)
	late, err := env.tournaments.CreateTournament(env.ctx, "u1", map[string]any{"name": "Alpha", "date": "2025-06-05"})
	require.NoError(t, err)
	_, err = env.tournaments.CreateTournament(env.ctx, "u2", map[string]any{"name": "Charlie"})
	require.NoError(t, err)

	mine, err := env.tournaments.ListUserTournaments(env.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, late.ID, mine[0].ID)
	assert.Equal(t, early.ID, mine[1].ID)

	all, err := env.tournaments.ListTournaments(env.ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(all))
	for _, tour := range all {
		names = append(names, tour.Name)
	}
	assert.Equal(t, []string{"Alpha", "Bravo", "Charlie"}, names)
}

func TestUpdateTournament(t *testing.T) {
	env := setupTestEnv(t)
	tour, err := env.tournaments.CreateTournament(env.ctx, "host", map[string]any{"name": "Old Name"})
	require.NoError(t, err)

	updated, err := env.tournaments.UpdateTournament(env.ctx, tour.ID, "host", map[string]any{"name": "New Name", "location": "Austin"})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "new-name", updated.Slug)
	assert.Equal(t, "Austin", updated.Location)

	_, err = env.tournaments.UpdateTournament(env.ctx, tour.ID, "guest", map[string]any{"name": "Hijack"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = env.tournaments.UpdateTournament(env.ctx, tour.ID, "host", map[string]any{"flows": []any{"x"}})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.tournaments.UpdateTournament(env.ctx, tour.ID, "host", map[string]any{"date": "not-a-date"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.tournaments.UpdateTournament(env.ctx, "missing", "host", map[string]any{"name": "X"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTournamentFlowArray(t *testing.T) {
	env := setupTestEnv(t)
	tour, err := env.tournaments.CreateTournament(env.ctx, "host", map[string]any{"name": "Array Open"})
	require.NoError(t, err)

	require.NoError(t, env.tournaments.AddFlowToTournament(env.ctx, tour.ID, "f1"))
	require.NoError(t, env.tournaments.AddFlowToTournament(env.ctx, tour.ID, "f1"))
	require.NoError(t, env.tournaments.AddFlowToTournament(env.ctx, tour.ID, "f2"))
	assert.Equal(t, models.StringList{"f1", "f2"}, env.tournament(t, tour.ID).Flows)

	require.NoError(t, env.tournaments.RemoveFlowFromTournament(env.ctx, tour.ID, "f1"))
	require.NoError(t, env.tournaments.RemoveFlowFromTournament(env.ctx, tour.ID, "f1"))
	assert.Equal(t, models.StringList{"f2"}, env.tournament(t, tour.ID).Flows)

	assert.ErrorIs(t, env.tournaments.AddFlowToTournament(env.ctx, "missing", "f1"), models.ErrNotFound)
}

func TestListTournamentFlows(t *testing.T) {
	env := setupTestEnv(t)
	tour, err := env.tournaments.CreateTournament(env.ctx, "host", map[string]any{"name": "Join Cup"})
	require.NoError(t, err)

	first := env.uploadFlow(t, "u1", "a.png", models.FlowMetadata{Tournament: "Join Cup"})
	second := env.uploadFlow(t, "u2", "b.png", models.FlowMetadata{Tournament: "Join Cup"})
	archived := env.uploadFlow(t, "u2", "c.png", models.FlowMetadata{Tournament: "Join Cup"})
	env.uploadFlow(t, "u1", "d.png", models.FlowMetadata{Tournament: "Elsewhere"})
	require.NoError(t, env.flows.ArchiveFlow(env.ctx, archived.ID, "u2"))

	flows, err := env.tournaments.ListTournamentFlows(env.ctx, tour.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, flowIDs(flows))

	_, err = env.tournaments.ListTournamentFlows(env.ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
