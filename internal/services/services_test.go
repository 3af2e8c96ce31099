package services

import (
	"context"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-tracker/internal/models"
	"github.com/adanyl0v/go-tracker/internal/repository/memory"
)

var testPasswordParams = &argon2id.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// fakeClock returns the same instant on every call until advanced.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type fixture struct {
	store *memory.Store
	clock *fakeClock
	set   *Set
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
	set := NewSet(zerolog.Nop(), store.Repositories(), Options{
		JWTIssuer:         "go-tracker-test",
		JWTSigningKey:     []byte("0123456789abcdef0123456789abcdef"),
		JWTAccessTokenTTL: 15 * time.Minute,
		AdminUsernames:    []string{"root"},
		PasswordParams:    testPasswordParams,
		Now:               clock.Now,
	})
	return &fixture{store: store, clock: clock, set: set}
}

func (f *fixture) register(t *testing.T, username string) Actor {
	t.Helper()
	user, err := f.set.Auth.Register(context.Background(), RegisterParams{
		Username: username,
		Password: "secret123",
	})
	require.NoError(t, err)
	return ActorFromUser(user)
}

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.set.Auth.Register(ctx, RegisterParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsAdmin)

	stored, ok := f.store.User(user.ID)
	require.True(t, ok)
	assert.NotEqual(t, "secret123", stored.Password)
	match, err := argon2id.ComparePasswordAndHash("secret123", stored.Password)
	require.NoError(t, err)
	assert.True(t, match)

	_, err = f.set.Auth.Register(ctx, RegisterParams{Username: "alice", Password: "other"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	admin, err := f.set.Auth.Register(ctx, RegisterParams{Username: "root", Password: "secret123"})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
}

func TestAuthService_LoginAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.set.Auth.Login(ctx, LoginParams{Username: "alice", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.set.Auth.Login(ctx, LoginParams{Username: "bob", Password: "secret123"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		hash, ok := dummyHashes.Load(*testPasswordParams)
		require.True(t, ok)
		params, _, _, err := argon2id.DecodeHash(hash.(string))
		require.NoError(t, err)
		assert.Equal(t, testPasswordParams, params)
	})

	t.Run("token authenticates the user", func(t *testing.T) {
		res, err := f.set.Auth.Login(ctx, LoginParams{Username: "alice", Password: "secret123"})
		require.NoError(t, err)
		assert.Equal(t, f.clock.Now().Add(15*time.Minute), res.AccessTokenExpiresAt)

		claims, err := f.set.Auth.ParseJWTToken(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, claims.Subject)
		assert.Equal(t, "go-tracker-test", claims.Issuer)

		user, err := f.set.Auth.Authenticate(ctx, res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, user.ID)
	})

	t.Run("expired token", func(t *testing.T) {
		res, err := f.set.Auth.Login(ctx, LoginParams{Username: "alice", Password: "secret123"})
		require.NoError(t, err)

		f.clock.Advance(time.Hour)
		_, err = f.set.Auth.Authenticate(ctx, res.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := f.set.Auth.Authenticate(ctx, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		other := NewAuthService(zerolog.Nop(), f.store.Repositories().Users, Options{
			JWTIssuer:         "go-tracker-test",
			JWTSigningKey:     []byte("ffffffffffffffffffffffffffffffff"),
			JWTAccessTokenTTL: time.Minute,
			PasswordParams:    testPasswordParams,
			Now:               f.clock.Now,
		})
		res, err := other.Login(ctx, LoginParams{Username: "alice", Password: "secret123"})
		require.NoError(t, err)

		_, err = f.set.Auth.Authenticate(ctx, res.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTaskService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	first, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "buy milk"})
	require.NoError(t, err)
	second, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "buy bread"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, alice.UserID, first.UserID)
	assert.Equal(t, models.TaskStatusPending, first.Status)
	assert.Equal(t, models.PriorityMedium, first.Priority)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	_, err = f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "x", Priority: "whenever"})
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestTaskService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	due := f.clock.Now().Add(48 * time.Hour)
	task, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{
		Title:       "buy milk",
		Description: "2 litres",
		Priority:    models.PriorityHigh,
		DueDate:     &due,
	})
	require.NoError(t, err)

	status := models.TaskStatusInProgress
	updated, err := f.set.Tasks.Update(ctx, alice, task.ID, UpdateTaskParams{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, models.TaskStatusInProgress, updated.Status)
	assert.Equal(t, "buy milk", updated.Title)
	assert.Equal(t, "2 litres", updated.Description)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))
	// The clock has not moved, updated_at must still advance.
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	title := "buy oat milk"
	again, err := f.set.Tasks.Update(ctx, alice, task.ID, UpdateTaskParams{Title: &title})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(updated.UpdatedAt))
	assert.Equal(t, models.TaskStatusInProgress, again.Status)

	_, err = f.set.Tasks.Update(ctx, alice, task.ID, UpdateTaskParams{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	bad := models.TaskStatus("done")
	_, err = f.set.Tasks.Update(ctx, alice, task.ID, UpdateTaskParams{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)

	_, err = f.set.Tasks.Update(ctx, alice, "missing", UpdateTaskParams{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskService_DueDatePrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	moscow := time.FixedZone("MSK", 3*60*60)
	due := time.Date(2026, 10, 20, 18, 30, 0, 123456789, moscow)
	task, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "buy milk", DueDate: &due})
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2026, 10, 20, 15, 30, 0, 123456000, time.UTC), *task.DueDate)

	later := due.Add(time.Hour)
	updated, err := f.set.Tasks.Update(ctx, alice, task.ID, UpdateTaskParams{DueDate: &later})
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)
	assert.Equal(t, time.Date(2026, 10, 20, 16, 30, 0, 123456000, time.UTC), *updated.DueDate)
}

func TestTaskService_Archive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	task, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "buy milk"})
	require.NoError(t, err)

	archived, err := f.set.Tasks.Archive(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusArchived, archived.Status)

	got, err := f.set.Tasks.Get(ctx, alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusArchived, got.Status)

	_, ok := f.store.Task(task.ID)
	assert.True(t, ok)
}

func TestTaskService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	for _, title := range []string{"one", "two", "three"} {
		_, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: title})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}
	done, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "four"})
	require.NoError(t, err)
	status := models.TaskStatusCompleted
	_, err = f.set.Tasks.Update(ctx, alice, done.ID, UpdateTaskParams{Status: &status})
	require.NoError(t, err)
	_, err = f.set.Tasks.Create(ctx, bob, CreateTaskParams{Title: "bob's"})
	require.NoError(t, err)

	t.Run("own items only", func(t *testing.T) {
		tasks, err := f.set.Tasks.List(ctx, alice, ListTasksParams{})
		require.NoError(t, err)
		assert.Len(t, tasks, 4)
		assert.Equal(t, "four", tasks[0].Title)
	})

	t.Run("status filter", func(t *testing.T) {
		tasks, err := f.set.Tasks.List(ctx, alice, ListTasksParams{Status: models.TaskStatusCompleted})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, done.ID, tasks[0].ID)
	})

	t.Run("search", func(t *testing.T) {
		tasks, err := f.set.Tasks.List(ctx, alice, ListTasksParams{Query: "T"})
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("limit", func(t *testing.T) {
		tasks, err := f.set.Tasks.List(ctx, alice, ListTasksParams{Offset: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		assert.Equal(t, "three", tasks[0].Title)
	})

	t.Run("another owner", func(t *testing.T) {
		_, err := f.set.Tasks.List(ctx, alice, ListTasksParams{OwnerID: bob.UserID})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin sees everyone", func(t *testing.T) {
		root := f.register(t, "root")
		tasks, err := f.set.Tasks.List(ctx, root, ListTasksParams{})
		require.NoError(t, err)
		assert.Len(t, tasks, 5)

		tasks, err = f.set.Tasks.List(ctx, root, ListTasksParams{OwnerID: bob.UserID})
		require.NoError(t, err)
		assert.Len(t, tasks, 1)
	})
}

func TestTaskService_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	root := f.register(t, "root")

	task, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "buy milk"})
	require.NoError(t, err)

	_, err = f.set.Tasks.Get(ctx, bob, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.set.Tasks.Archive(ctx, bob, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// A missing id is reported as missing whoever asks.
	_, err = f.set.Tasks.Get(ctx, bob, "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	got, err := f.set.Tasks.Get(ctx, root, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
}

func TestTaskService_Bulk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	tasks, err := f.set.Tasks.BulkCreate(ctx, alice, []CreateTaskParams{
		{Title: "one"},
		{Title: "two", Priority: models.PriorityUrgent},
	})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, models.PriorityUrgent, tasks[1].Priority)

	_, err = f.set.Tasks.BulkCreate(ctx, alice, []CreateTaskParams{
		{Title: "three"},
		{Title: "four", Priority: "bogus"},
	})
	assert.ErrorIs(t, err, ErrInvalidPriority)
	assert.ErrorContains(t, err, "task 1")

	updated, err := f.set.Tasks.BulkUpdateStatus(ctx, alice,
		[]string{tasks[0].ID, tasks[1].ID}, models.TaskStatusCompleted)
	require.NoError(t, err)
	for _, task := range updated {
		assert.Equal(t, models.TaskStatusCompleted, task.Status)
	}

	_, err = f.set.Tasks.BulkUpdateStatus(ctx, alice, []string{tasks[0].ID, "missing"}, models.TaskStatusPending)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = f.set.Tasks.BulkUpdateStatus(ctx, alice, []string{tasks[0].ID}, "bogus")
	assert.ErrorIs(t, err, ErrInvalidTaskStatus)
}

func TestTaskService_Statistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	root := f.register(t, "root")

	past := f.clock.Now().Add(-time.Hour)
	_, err := f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "late", DueDate: &past})
	require.NoError(t, err)
	_, err = f.set.Tasks.Create(ctx, alice, CreateTaskParams{Title: "urgent", Priority: models.PriorityUrgent})
	require.NoError(t, err)
	_, err = f.set.Tasks.Create(ctx, bob, CreateTaskParams{Title: "bob's"})
	require.NoError(t, err)

	stats, err := f.set.Tasks.Statistics(ctx, alice)
	require.NoError(t, err)
	want := &models.TaskStatistics{
		Total: 2,
		ByStatus: map[models.TaskStatus]int64{
			models.TaskStatusPending:    2,
			models.TaskStatusInProgress: 0,
			models.TaskStatusCompleted:  0,
			models.TaskStatusArchived:   0,
		},
		ByPriority: map[models.Priority]int64{
			models.PriorityLow:    0,
			models.PriorityMedium: 1,
			models.PriorityHigh:   0,
			models.PriorityUrgent: 1,
		},
		Overdue: 1,
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("statistics mismatch (-want +got):\n%s", diff)
	}

	stats, err = f.set.Tasks.Statistics(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
}

func TestShipmentService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	shipment, err := f.set.Shipments.Create(ctx, alice, CreateShipmentParams{
		Content:     "books",
		Weight:      12.5,
		Destination: 11001,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, shipment.ID)
	assert.Equal(t, models.ShipmentStatusPlaced, shipment.Status)
	assert.Equal(t, models.PriorityMedium, shipment.Priority)
	assert.Equal(t, f.clock.Now().Add(72*time.Hour), shipment.EstimatedDelivery)

	for _, weight := range []float64{0, -1, 25.01} {
		_, err = f.set.Shipments.Create(ctx, alice, CreateShipmentParams{
			Content:     "heavy",
			Weight:      weight,
			Destination: 11001,
		})
		assert.ErrorIs(t, err, ErrInvalidWeight, "weight %v", weight)
	}

	_, err = f.set.Shipments.Create(ctx, alice, CreateShipmentParams{
		Content:     "max",
		Weight:      models.MaxShipmentWeight,
		Destination: 11001,
	})
	assert.NoError(t, err)
}

func TestShipmentService_UpdateAndArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	shipment, err := f.set.Shipments.Create(ctx, alice, CreateShipmentParams{
		Content:     "books",
		Weight:      3,
		Destination: 11001,
	})
	require.NoError(t, err)

	status := models.ShipmentStatusInTransit
	updated, err := f.set.Shipments.Update(ctx, alice, shipment.ID, UpdateShipmentParams{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusInTransit, updated.Status)
	assert.Equal(t, "books", updated.Content)
	assert.Equal(t, 3.0, updated.Weight)
	assert.True(t, updated.UpdatedAt.After(shipment.UpdatedAt))

	heavy := 30.0
	_, err = f.set.Shipments.Update(ctx, alice, shipment.ID, UpdateShipmentParams{Weight: &heavy})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = f.set.Shipments.Update(ctx, alice, shipment.ID, UpdateShipmentParams{})
	assert.ErrorIs(t, err, ErrNoFieldsToUpdate)

	_, err = f.set.Shipments.Update(ctx, bob, shipment.ID, UpdateShipmentParams{Status: &status})
	assert.ErrorIs(t, err, ErrForbidden)

	archived, err := f.set.Shipments.Archive(ctx, alice, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusArchived, archived.Status)

	got, err := f.set.Shipments.Get(ctx, alice, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ShipmentStatusArchived, got.Status)

	_, err = f.set.Shipments.Get(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrShipmentNotFound)
}

func TestShipmentService_ListAndStatistics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")

	created, err := f.set.Shipments.BulkCreate(ctx, alice, []CreateShipmentParams{
		{Content: "books", Weight: 2, Destination: 11001},
		{Content: "bricks", Weight: 20, Destination: 11002},
		{Content: "letters", Weight: 2, Destination: 11001, Priority: models.PriorityLow},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	shipments, err := f.set.Shipments.List(ctx, alice, ListShipmentsParams{Destination: 11001})
	require.NoError(t, err)
	assert.Len(t, shipments, 2)

	minWeight := 10.0
	shipments, err = f.set.Shipments.List(ctx, alice, ListShipmentsParams{MinWeight: &minWeight})
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.Equal(t, "bricks", shipments[0].Content)

	_, err = f.set.Shipments.BulkUpdateStatus(ctx, alice,
		[]string{created[0].ID}, models.ShipmentStatusDelivered)
	require.NoError(t, err)

	shipments, err = f.set.Shipments.List(ctx, alice, ListShipmentsParams{Status: models.ShipmentStatusPlaced})
	require.NoError(t, err)
	assert.Len(t, shipments, 2)

	f.clock.Advance(96 * time.Hour)
	stats, err := f.set.Shipments.Statistics(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.ByStatus[models.ShipmentStatusDelivered])
	assert.Equal(t, int64(1), stats.ByPriority[models.PriorityLow])
	assert.Equal(t, int64(2), stats.Overdue)
	assert.InDelta(t, 8.0, stats.AverageWeight, 1e-9)
}

func TestNextTimestamp(t *testing.T) {
	prev := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, prev.Add(time.Microsecond), nextTimestamp(prev, prev))
	assert.Equal(t, prev.Add(time.Microsecond), nextTimestamp(prev.Add(-time.Hour), prev))
	assert.Equal(t, prev.Add(time.Second), nextTimestamp(prev.Add(time.Second+time.Nanosecond), prev))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, uint64(DefaultListLimit), clampLimit(0))
	assert.Equal(t, uint64(5), clampLimit(5))
	assert.Equal(t, uint64(MaxListLimit), clampLimit(1000))
}
