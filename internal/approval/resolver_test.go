package approval

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	managers map[uuid.UUID]*uuid.UUID
	fallback *uuid.UUID
}

func (f *fakeStore) ManagerOf(_ context.Context, employeeID uuid.UUID) (*uuid.UUID, error) {
	return f.managers[employeeID], nil
}

func (f *fakeStore) FirstActiveByRoles(_ context.Context, _ uuid.UUID, _ []string) (*uuid.UUID, error) {
	return f.fallback, nil
}

func TestResolve(t *testing.T) {
	emp := uuid.New()
	mgr1 := uuid.New()
	mgr2 := uuid.New()
	mgr3 := uuid.New()

	t.Run("walks the chain in order", func(t *testing.T) {
		r := NewResolver(&fakeStore{managers: map[uuid.UUID]*uuid.UUID{
			emp:  &mgr1,
			mgr1: &mgr2,
			mgr2: &mgr3,
		}})

		chain, err := r.Resolve(context.Background(), emp)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{mgr1, mgr2, mgr3}, chain)
	})

	t.Run("no manager yields an empty chain", func(t *testing.T) {
		r := NewResolver(&fakeStore{managers: map[uuid.UUID]*uuid.UUID{}})

		chain, err := r.Resolve(context.Background(), emp)
		assert.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("cycle terminates the walk", func(t *testing.T) {
		r := NewResolver(&fakeStore{managers: map[uuid.UUID]*uuid.UUID{
			emp:  &mgr1,
			mgr1: &mgr2,
			mgr2: &mgr1,
		}})

		chain, err := r.Resolve(context.Background(), emp)
		assert.NoError(t, err)
		assert.Equal(t, []uuid.UUID{mgr1, mgr2}, chain)
	})

	t.Run("self-managed employee yields an empty chain", func(t *testing.T) {
		self := uuid.New()
		r := NewResolver(&fakeStore{managers: map[uuid.UUID]*uuid.UUID{
			self: &self,
		}})

		chain, err := r.Resolve(context.Background(), self)
		assert.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("depth is bounded", func(t *testing.T) {
		managers := map[uuid.UUID]*uuid.UUID{}
		current := emp
		for i := 0; i < 20; i++ {
			next := uuid.New()
			managers[current] = &next
			current = next
		}
		r := NewResolver(&fakeStore{managers: managers})

		chain, err := r.Resolve(context.Background(), emp)
		assert.NoError(t, err)
		assert.Len(t, chain, maxChainDepth)
	})
}

func TestFallbackApprover(t *testing.T) {
	hr := uuid.New()

	t.Run("returns the configured fallback", func(t *testing.T) {
		r := NewResolver(&fakeStore{fallback: &hr})
		got, err := r.FallbackApprover(context.Background(), uuid.New())
		assert.NoError(t, err)
		assert.Equal(t, &hr, got)
	})

	t.Run("nil when no hr or admin exists", func(t *testing.T) {
		r := NewResolver(&fakeStore{})
		got, err := r.FallbackApprover(context.Background(), uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}
