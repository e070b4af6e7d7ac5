package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrilog/internal/core"
	"nutrilog/internal/storage/memory"
)

type recordingPublisher struct {
	synced  [][2]int64
	deleted []int64
	err     error
}

func (p *recordingPublisher) PublishMealSync(_ context.Context, id, version int64) error {
	p.synced = append(p.synced, [2]int64{id, version})
	return p.err
}

func (p *recordingPublisher) PublishMealDelete(_ context.Context, id int64) error {
	p.deleted = append(p.deleted, id)
	return p.err
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

// versionedStore adds row versions to the in-memory store.
type versionedStore struct {
	*memory.Store
	versions map[int64]int64
}

func (s *versionedStore) UpdateMeal(ctx context.Context, id int64, p core.MealPatch) (core.MealEntry, error) {
	e, err := s.Store.UpdateMeal(ctx, id, p)
	if err == nil {
		s.versions[id]++
	}
	return e, err
}

func (s *versionedStore) MealVersion(_ context.Context, id int64) (int64, error) {
	return s.versions[id] + 1, nil
}

func TestMealServiceWrites(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	inv := &countingInvalidator{}
	store := &versionedStore{Store: memory.New(), versions: map[int64]int64{}}
	svc := NewMealService(store, pub, inv)

	created, err := svc.CreateMeal(ctx, core.MealEntry{Date: core.NewDate(2025, 3, 1), MealType: core.Lunch, Description: "salad", Calories: 320})
	require.NoError(t, err)
	assert.Equal(t, [][2]int64{{created.ID, 1}}, pub.synced)
	assert.Equal(t, 1, inv.n)

	cal := 350.0
	_, err = svc.UpdateMeal(ctx, created.ID, core.MealPatch{Calories: &cal})
	require.NoError(t, err)
	assert.Equal(t, [2]int64{created.ID, 2}, pub.synced[1])
	assert.Equal(t, 2, inv.n)

	require.NoError(t, svc.DeleteMeal(ctx, created.ID))
	assert.Equal(t, []int64{created.ID}, pub.deleted)
	assert.Equal(t, 3, inv.n)

	err = svc.DeleteMeal(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 3, inv.n, "failed writes do not invalidate")
}

func TestMealServicePublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("circuit breaker is open")}
	svc := NewMealService(memory.New(), pub, nil)

	created, err := svc.CreateMeal(ctx, core.MealEntry{Date: core.NewDate(2025, 3, 1), MealType: core.Snack, Description: "apple", Calories: 80})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	require.NoError(t, svc.DeleteMeal(ctx, created.ID))
}

func TestMealServiceWithoutPublisher(t *testing.T) {
	ctx := context.Background()
	svc := NewMealService(memory.New(), nil, nil)

	created, err := svc.CreateMeal(ctx, core.MealEntry{Date: core.NewDate(2025, 3, 1), MealType: core.Dinner, Description: "soup", Calories: 300})
	require.NoError(t, err)

	_, err = svc.CreateComponent(ctx, core.Component{MealID: created.ID, Description: "leek", Calories: 40})
	require.NoError(t, err)
	comps, err := svc.ListComponents(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, comps, 1)

	_, err = svc.ListComponents(ctx, created.ID+1)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
