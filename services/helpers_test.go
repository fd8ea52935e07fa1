package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"flow-pantry-system/models"
	"flow-pantry-system/store"
	"flow-pantry-system/utils"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	ctx         context.Context
	store       *store.Gateway
	objects     *utils.DiskStore
	users       *UserService
	tournaments *TournamentService
	flows       *FlowService
	inventory   *InventoryService
	recipes     *RecipeService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	db, err := store.Connect("sqlite", ":memory:", log)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	clock := &testClock{t: time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)}
	gw, err := store.NewGateway(db, log, store.WithClock(clock.Now))
	require.NoError(t, err)

	objects, err := utils.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	users := NewUserService(gw, log)
	tournaments := NewTournamentService(gw, log)
	return &testEnv{
		ctx:         context.Background(),
		store:       gw,
		objects:     objects,
		users:       users,
		tournaments: tournaments,
		flows:       NewFlowService(gw, objects, users, tournaments, log),
		inventory:   NewInventoryService(gw, objects, users, log),
		recipes:     NewRecipeService(gw, log),
	}
}

func identity(uid string) models.Identity {
	return models.Identity{UID: uid, Email: uid + "@example.com", DisplayName: strings.ToUpper(uid)}
}

func upload(name, body string) Upload {
	return Upload{FileName: name, ContentType: "image/png", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func (e *testEnv) uploadFlow(t *testing.T, uid, file string, meta models.FlowMetadata) *models.Flow {
	t.Helper()
	flow, err := e.flows.UploadFlow(e.ctx, identity(uid), upload(file, "png-bytes"), meta)
	require.NoError(t, err)
	return flow
}

func (e *testEnv) tournament(t *testing.T, id string) *models.Tournament {
	t.Helper()
	tour, err := e.tournaments.GetTournament(e.ctx, id)
	require.NoError(t, err)
	return tour
}

func (e *testEnv) user(t *testing.T, uid string) *models.User {
	t.Helper()
	u, err := e.users.GetUserProfile(e.ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func flowIDs(flows []models.Flow) []string {
	out := make([]string, 0, len(flows))
	for _, f := range flows {
		out = append(out, f.ID)
	}
	return out
}
