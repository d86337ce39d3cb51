package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"patrolops/api/internal/docstore"
	"patrolops/api/internal/events"
	"patrolops/api/internal/model"
)

var testLoc = time.FixedZone("CST", -6*60*60)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type testEnv struct {
	store    *docstore.Memory
	catalogs *CatalogService
	users    *UserService
	policy   *VisibilityPolicy
	bus      *events.Bus
	ops      *OperativeService
	reports  *ReportService
	auth     *AuthService
	clock    *fakeClock

	mu     sync.Mutex
	events []model.OperativeEvent
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := docstore.NewMemory()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 30, 0, 0, testLoc)}

	env := &testEnv{
		store:    store,
		catalogs: NewCatalogService(store, logger),
		users:    NewUserService(store, logger),
		policy:   NewVisibilityPolicy(testLoc, 9),
		bus:      events.NewBus(),
		clock:    clock,
	}
	env.users.SetHashCost(bcrypt.MinCost)
	env.users.now = clock.Now
	env.bus.Subscribe(func(e model.OperativeEvent) {
		env.mu.Lock()
		env.events = append(env.events, e)
		env.mu.Unlock()
	})
	env.ops = NewOperativeService(store, env.catalogs, env.policy, env.bus, nil, testLoc, logger)
	env.ops.SetClock(clock.Now)
	env.reports = NewReportService(env.ops, env.policy, testLoc, 9)
	env.auth = NewAuthService(env.users, store, "test-secret", time.Hour, logger)
	env.auth.now = clock.Now
	return env
}

func (e *testEnv) publishedKinds() []model.OperativeEventKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.OperativeEventKind, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Kind
	}
	return out
}

func (e *testEnv) user(t *testing.T, username string, role model.Role, region string) *model.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), model.CreateUserRequest{
		FullName:       "USUARIO " + username,
		Username:       username,
		Password:       "secret",
		Role:           role,
		AssignedRegion: region,
	})
	require.NoError(t, err)
	return u
}

func validCreateRequest() model.CreateOperativeRequest {
	return model.CreateOperativeRequest{
		Type:     "Operativo Carrusel",
		Region:   "REGION 1",
		Quadrant: "C-01",
		Location: model.LocationData{
			Latitude:  19.3133,
			Longitude: -98.8829,
			Colony:    "Centro",
			Street:    "Av. Juárez",
			Corner:    "Hidalgo",
		},
		Units: []model.UnitInput{{
			UnitNumber:     "P-101",
			InCharge:       "Juan Pérez",
			Rank:           "Policía",
			PersonnelCount: 2,
			Phone:          "5512345678",
		}},
	}
}

func meetingCreateRequest() model.CreateOperativeRequest {
	req := validCreateRequest()
	req.Type = "REUNION VECINAL"
	req.MeetingTopic = "Alumbrado público"
	return req
}
