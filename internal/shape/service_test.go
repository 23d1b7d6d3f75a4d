package shape

import (
	"context"
	defError "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"collab-canvas/internal/auth"
	apiError "collab-canvas/internal/errors"
	"collab-canvas/internal/hub"
	"collab-canvas/internal/worker"
	"collab-canvas/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = auth.Identity{ID: "user-a", Name: "Alice", Color: "#ff0000"}
	bob   = auth.Identity{ID: "user-b", Name: "Bob", Color: "#0000ff"}
)

func newTestService(t *testing.T) (Service, *hub.Hub) {
	t.Helper()

	fanout := hub.New()
	pool := worker.NewWorkerPool(1)
	t.Cleanup(pool.Shutdown)

	// nil redis client: cache layer no-ops, which is exactly the
	// no-redis production fallback
	service := NewService(NewMemoryRepository(), fanout, redis.NewCache(nil), pool)
	return service, fanout
}

func ptr[T any](v T) *T { return &v }

func TestCreateShape(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{
		Type: "rect", X: 10, Y: 20, Width: 100, Height: 50, Fill: "#aabbcc",
	}, alice)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, uint64(1), created.Version)
	assert.Equal(t, alice.ID, created.CreatedBy)
	assert.Equal(t, alice.ID, created.LastEditedBy)
	assert.Equal(t, "canvas-1", created.CanvasID)
}

func TestUpdateShape_UnconditionalPath(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	// no expected version: always applies, still bumps by exactly 1
	updated, err := service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(42.0)}, bob, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), updated.Version)
	assert.Equal(t, 42.0, updated.X)
	assert.Equal(t, bob.ID, updated.LastEditedBy)
	assert.Equal(t, alice.ID, updated.CreatedBy)
}

func TestUpdateShape_MonotonicVersions(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		updated, err := service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(float64(i))}, alice, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+2), updated.Version)
	}
}

func TestUpdateShape_ConcurrentUnconditionalWritersAllLand(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(float64(i))}, bob, nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	shapes, err := service.ListShapes(ctx, "canvas-1")
	require.NoError(t, err)
	require.Len(t, shapes, 1)

	// every accepted write incremented by exactly 1, no lost updates
	assert.Equal(t, uint64(1+writers), shapes[0].Version)
}

func TestUpdateShape_ConcurrentConditionalWriters_ExactlyOneWins(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	conflicts := 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(float64(i))}, bob, ptr(uint64(1)))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			var conflictErr *apiError.ConflictError
			if assert.ErrorAs(t, err, &conflictErr) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func TestUpdateShape_ConflictReportsBothVersionsAndLeavesStorageUntouched(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	// client A reads s1 at version 1; client B updates it to 2;
	// client A's conditional write must lose without clobbering B's
	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	_, err = service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(99.0)}, bob, nil)
	require.NoError(t, err)

	_, err = service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(10.0)}, alice, ptr(uint64(1)))
	require.Error(t, err)

	var conflictErr *apiError.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, created.ID, conflictErr.ShapeID)
	assert.Equal(t, uint64(1), conflictErr.LocalVersion)
	assert.Equal(t, uint64(2), conflictErr.ServerVersion)
	assert.Equal(t, bob.ID, conflictErr.LastEditedBy)
	assert.Equal(t, bob.Name, conflictErr.LastEditedByName)

	shapes, err := service.ListShapes(ctx, "canvas-1")
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, 99.0, shapes[0].X, "losing write must not change storage")
	assert.Equal(t, uint64(2), shapes[0].Version)
}

func TestUpdateShape_MissingShapeIsNotFoundNotConflict(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.UpdateShape(ctx, "canvas-1", "no-such-shape", &Delta{X: ptr(1.0)}, alice, ptr(uint64(1)))
	require.Error(t, err)

	var apiErr *apiError.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)

	var conflictErr *apiError.ConflictError
	assert.False(t, defError.As(err, &conflictErr))
}

func TestDeleteShape_WinsOverConcurrentEdit(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	// delete is unconditional even though bob edited after alice read
	_, err = service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(5.0)}, bob, nil)
	require.NoError(t, err)

	require.NoError(t, service.DeleteShape(ctx, "canvas-1", created.ID))

	shapes, err := service.ListShapes(ctx, "canvas-1")
	require.NoError(t, err)
	assert.Empty(t, shapes)

	// deleting again is a no-op, not an error
	assert.NoError(t, service.DeleteShape(ctx, "canvas-1", created.ID))
}

func TestCanvasIsolation(t *testing.T) {
	service, fanout := newTestService(t)
	ctx := context.Background()

	subB := fanout.Subscribe("canvas-b")
	defer subB.Unsubscribe()

	_, err := service.CreateShape(ctx, "canvas-a", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	select {
	case <-subB.Ready():
		t.Fatal("subscriber of canvas-b observed a canvas-a mutation")
	default:
	}

	shapesB, err := service.ListShapes(ctx, "canvas-b")
	require.NoError(t, err)
	assert.Empty(t, shapesB)
}

func TestMutationsFanOutFullSnapshot(t *testing.T) {
	service, fanout := newTestService(t)
	ctx := context.Background()

	sub := fanout.Subscribe("canvas-1")
	defer sub.Unsubscribe()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	<-sub.Ready()
	snaps := sub.Drain()
	require.Len(t, snaps, 1)
	assert.Equal(t, hub.KindShapes, snaps[0].Kind)
	assert.Equal(t, "canvas-1", snaps[0].CanvasID)

	shapes, ok := snaps[0].Payload.([]Shape)
	require.True(t, ok)
	require.Len(t, shapes, 1)
	assert.Equal(t, created.ID, shapes[0].ID)
}

func TestListShapes_SeesAcknowledgedMutationDespiteStaleCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cache := redis.NewCache(client)

	fanout := hub.New()
	pool := worker.NewWorkerPool(1)
	service := NewService(NewMemoryRepository(), fanout, cache, pool)
	ctx := context.Background()

	created, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect", X: 1}, alice)
	require.NoError(t, err)

	// wedge the pool: one task parks the only worker, the rest fill the
	// queue, so anything the mutation path hands off gets dropped
	release := make(chan struct{})
	pool.Submit(func(ctx context.Context) error { <-release; return nil })
	for i := 0; i < 1100; i++ {
		pool.Submit(func(ctx context.Context) error { return nil })
	}

	// warm the cache with the pre-update snapshot under the current key
	versionKey := "canvas:canvas-1:shapes:version"
	staleKey := fmt.Sprintf("shapes:c:%s:v:%d", "canvas-1", cache.GetVersion(ctx, versionKey))
	cache.Set(ctx, staleKey, []Shape{*created}, time.Hour)

	updated, err := service.UpdateShape(ctx, "canvas-1", created.ID, &Delta{X: ptr(42.0)}, bob, nil)
	require.NoError(t, err)
	require.Equal(t, 42.0, updated.X)

	// the 2xx was acknowledged, so a read must not serve the old snapshot
	// even though no background task can run
	shapes, err := service.ListShapes(ctx, "canvas-1")
	require.NoError(t, err)
	require.Len(t, shapes, 1)
	assert.Equal(t, 42.0, shapes[0].X, "ListShapes must reflect the acknowledged update")
	assert.Equal(t, uint64(2), shapes[0].Version)

	close(release)
	pool.Shutdown()
}

func TestDeleteCanvasShapes(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := service.CreateShape(ctx, "canvas-1", CreateAttributes{Type: "rect"}, alice)
		require.NoError(t, err)
	}
	_, err := service.CreateShape(ctx, "canvas-2", CreateAttributes{Type: "rect"}, alice)
	require.NoError(t, err)

	require.NoError(t, service.DeleteCanvasShapes(ctx, "canvas-1"))

	shapes1, err := service.ListShapes(ctx, "canvas-1")
	require.NoError(t, err)
	assert.Empty(t, shapes1)

	shapes2, err := service.ListShapes(ctx, "canvas-2")
	require.NoError(t, err)
	assert.Len(t, shapes2, 1)
}
