package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"flow-pantry-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

// TestGatewayWithPostgres runs the array and nested-field queries against a real
// PostgreSQL, where they compile to jsonb operators instead of json_each.
func TestGatewayWithPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "flows",
				"POSTGRES_PASSWORD": "flows",
				"POSTGRES_DB":       "flows",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=flows password=flows dbname=flows sslmode=disable", host, port.Port())
	log := zaptest.NewLogger(t)
	db, err := Connect("postgres", dsn, log)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	g, err := NewGateway(db, log)
	require.NoError(t, err)

	tour := &models.Tournament{Name: "PG Open", CreatedBy: "host", Flows: models.StringList{}, Participants: models.StringList{"host", "u1"}}
	require.NoError(t, g.Create(ctx, Tournaments, tour))

	a := &models.Flow{UserID: "u1", Tags: models.StringList{"aff", "k"}, Status: models.FlowStatusActive,
		Tournament: models.TournamentRef{ID: tour.ID, Name: tour.Name}}
	b := &models.Flow{UserID: "u1", Tags: models.StringList{"neg"}, Status: models.FlowStatusActive}
	require.NoError(t, g.Create(ctx, Flows, a))
	require.NoError(t, g.Create(ctx, Flows, b))

	var hits []models.Flow
	require.NoError(t, g.Query(ctx, Flows, Query{
		Conditions: []Condition{Where("tags", OpArrayContainsAny, []string{"k", "theory"})},
	}, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, a.ID, hits[0].ID)

	hits = nil
	require.NoError(t, g.Query(ctx, Flows, Query{
		Conditions: []Condition{Where("tournament.id", OpEqual, tour.ID)},
	}, &hits))
	require.Len(t, hits, 1)

	var tours []models.Tournament
	require.NoError(t, g.Query(ctx, Tournaments, Query{
		Conditions: []Condition{Where("participants", OpArrayContains, "u1")},
	}, &tours))
	require.Len(t, tours, 1)

	require.NoError(t, g.Update(ctx, Tournaments, tour.ID, map[string]any{"flows": []string{a.ID}}))
	var got models.Tournament
	require.NoError(t, g.Get(ctx, Tournaments, tour.ID, &got))
	assert.Equal(t, models.StringList{a.ID}, got.Flows)

	err = g.Transaction(ctx, func(tx Store) error {
		if err := tx.Delete(ctx, Flows, a.ID); err != nil {
			return err
		}
		return models.ErrValidation
	})
	require.ErrorIs(t, err, models.ErrValidation)
	require.NoError(t, g.Get(ctx, Flows, a.ID, &models.Flow{}))
}
