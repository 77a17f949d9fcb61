package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/bobby4fischer/pettrack/internal/config"
	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/fanout"
	"github.com/bobby4fischer/pettrack/internal/repository"
	"github.com/bobby4fischer/pettrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records published events per user for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events map[string][]fanout.Event
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{events: make(map[string][]fanout.Event)}
}

func (p *capturePublisher) Publish(userID string, ev fanout.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], ev)
}

func (p *capturePublisher) named(userID, name string) []fanout.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []fanout.Event
	for _, ev := range p.events[userID] {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// svcEnv wires tx-capable repositories and services onto one test database.
type svcEnv struct {
	conn     *sql.DB
	users    repository.UserRepo
	tasks    repository.TaskRepo
	sessions repository.SessionRepo
	uow      db.UnitOfWork
	cfg      config.Config
	pub      *capturePublisher
}

func setupEnv(t *testing.T) *svcEnv {
	database := testutil.NewTestDB(t)
	return newEnvFor(database)
}

func setupFileEnv(t *testing.T) *svcEnv {
	database := testutil.NewFileTestDB(t)
	return newEnvFor(database)
}

func newEnvFor(database *sql.DB) *svcEnv {
	return &svcEnv{
		conn:     database,
		users:    repository.NewSQLiteUserRepo(database),
		tasks:    repository.NewSQLiteTaskRepo(database),
		sessions: repository.NewSQLiteSessionRepo(database),
		uow:      db.NewSQLiteUnitOfWork(database),
		cfg:      config.DefaultConfig(),
		pub:      newCapturePublisher(),
	}
}

func (e *svcEnv) sessionService() SessionService {
	return NewSessionService(e.conn, e.uow, e.cfg, e.pub)
}

func (e *svcEnv) taskService() TaskService {
	return NewTaskService(e.conn, e.uow, e.cfg, e.pub)
}

func (e *svcEnv) rewardService() RewardService {
	return NewRewardService(e.conn, e.uow, e.cfg, e.pub)
}

func (e *svcEnv) petService() PetService {
	return NewPetService(e.conn, e.uow, e.cfg, e.pub)
}

func TestSessionService_StartAndStop(t *testing.T) {
	env := setupEnv(t)
	svc := env.sessionService()
	ctx := context.Background()

	u := testutil.NewTestUser("starter")
	require.NoError(t, env.users.Create(ctx, u))

	sess, err := svc.Start(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.True(t, sess.Running())
	assert.Nil(t, sess.TaskID)

	stopped, err := svc.Stop(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	assert.True(t, stopped.Completed)
	require.NotNil(t, stopped.EndAt)

	// An immediate stop earns nothing, but the pet still reacts.
	got, err := env.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Gems)
	assert.Empty(t, env.pub.named(u.ID, fanout.EventRewardUpdate))

	reacts := env.pub.named(u.ID, fanout.EventPetReact)
	require.Len(t, reacts, 1)
	assert.Equal(t, fanout.PetReact{Kind: fanout.ReactSessionComplete, SubjectID: sess.ID}, reacts[0].Payload)
}

func TestSessionService_Start_RequiresUser(t *testing.T) {
	env := setupEnv(t)
	_, err := env.sessionService().Start(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSessionService_Start_SecondRunningConflicts(t *testing.T) {
	env := setupEnv(t)
	svc := env.sessionService()
	ctx := context.Background()

	u := testutil.NewTestUser("busy")
	require.NoError(t, env.users.Create(ctx, u))

	_, err := svc.Start(ctx, u.ID, nil)
	require.NoError(t, err)

	_, err = svc.Start(ctx, u.ID, nil)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSessionService_Stop_RewardsQualifyingDuration(t *testing.T) {
	env := setupEnv(t)
	svc := env.sessionService()
	ctx := context.Background()

	u := testutil.NewTestUser("focused")
	require.NoError(t, env.users.Create(ctx, u))

	sess := testutil.NewTestSession(u.ID,
		testutil.WithStartAt(time.Now().UTC().Add(-30*time.Minute)))
	require.NoError(t, env.sessions.Create(ctx, sess))

	stopped, err := svc.Stop(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stopped.DurationMinutes, env.cfg.SessionRewardMinutes)

	got, err := env.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, env.cfg.SessionRewardGems, got.Gems)

	rewards := env.pub.named(u.ID, fanout.EventRewardUpdate)
	require.Len(t, rewards, 1)
	assert.Equal(t, fanout.RewardUpdate{CurrencyDelta: env.cfg.SessionRewardGems}, rewards[0].Payload)

	reacts := env.pub.named(u.ID, fanout.EventPetReact)
	require.Len(t, reacts, 1)
	assert.Equal(t, fanout.PetReact{Kind: fanout.ReactSessionComplete, SubjectID: sess.ID}, reacts[0].Payload)
}

func TestSessionService_Stop_Idempotent(t *testing.T) {
	env := setupEnv(t)
	svc := env.sessionService()
	ctx := context.Background()

	u := testutil.NewTestUser("twice")
	require.NoError(t, env.users.Create(ctx, u))

	sess := testutil.NewTestSession(u.ID,
		testutil.WithStartAt(time.Now().UTC().Add(-40*time.Minute)))
	require.NoError(t, env.sessions.Create(ctx, sess))

	first, err := svc.Stop(ctx, u.ID, sess.ID)
	require.NoError(t, err)

	second, err := svc.Stop(ctx, u.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, first.DurationMinutes, second.DurationMinutes)
	assert.True(t, second.Completed)

	// No double reward, no second round of events.
	got, err := env.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, env.cfg.SessionRewardGems, got.Gems)
	assert.Len(t, env.pub.named(u.ID, fanout.EventRewardUpdate), 1)
	assert.Len(t, env.pub.named(u.ID, fanout.EventPetReact), 1)
}

func TestSessionService_Stop_Missing(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	u := testutil.NewTestUser("empty")
	require.NoError(t, env.users.Create(ctx, u))

	_, err := env.sessionService().Stop(ctx, u.ID, "no-such-session")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionService_Stop_OtherOwnerLooksMissing(t *testing.T) {
	env := setupEnv(t)
	svc := env.sessionService()
	ctx := context.Background()

	owner := testutil.NewTestUser("owner")
	intruder := testutil.NewTestUser("intruder")
	require.NoError(t, env.users.Create(ctx, owner))
	require.NoError(t, env.users.Create(ctx, intruder))

	sess, err := svc.Start(ctx, owner.ID, nil)
	require.NoError(t, err)

	_, err = svc.Stop(ctx, intruder.ID, sess.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionService_History_AppliesLimit(t *testing.T) {
	env := setupEnv(t)
	env.cfg.HistoryLimit = 2
	svc := env.sessionService()
	ctx := context.Background()

	u := testutil.NewTestUser("historian")
	require.NoError(t, env.users.Create(ctx, u))

	base := time.Now().UTC().Truncate(time.Second).Add(-6 * time.Hour)
	for i := 0; i < 4; i++ {
		s := testutil.NewTestSession(u.ID,
			testutil.WithStartAt(base.Add(time.Duration(i)*time.Hour)),
			testutil.Stopped(25))
		require.NoError(t, env.sessions.Create(ctx, s))
	}

	got, err := svc.History(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, got[0].StartAt.After(got[1].StartAt), "most recent first")
}
