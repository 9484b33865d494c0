package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{ID: 7, Name: "Class of 2012"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, CommunityKey(7), &first, CommunityTTL, fetch(&first)))
	assert.Equal(t, "Class of 2012", first.Name)
	assert.True(t, mr.Exists(CommunityKey(7)))

	var second cachedThing
	require.NoError(t, Aside(ctx, CommunityKey(7), &second, CommunityTTL, fetch(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	mr.FastForward(CommunityTTL + time.Second)
	var third cachedThing
	require.NoError(t, Aside(ctx, CommunityKey(7), &third, CommunityTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := withMiniredis(t)
	boom := errors.New("not found")

	var dest cachedThing
	err := Aside(context.Background(), UserKey(1), &dest, UserTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(UserKey(1)))
}

func TestAside_NoClient(t *testing.T) {
	SetClient(nil)
	called := false
	var dest cachedThing
	require.NoError(t, Aside(context.Background(), UserKey(1), &dest, UserTTL, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestInvalidateCommunity(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, mr.Set(CommunityKey(3), "{}"))
	require.NoError(t, mr.Set(CommunityKey(4), "{}"))

	InvalidateCommunity(context.Background(), 3)
	assert.False(t, mr.Exists(CommunityKey(3)))
	assert.True(t, mr.Exists(CommunityKey(4)))
}
