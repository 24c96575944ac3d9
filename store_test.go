package morestickers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *MockStorage) {
	t.Helper()
	storage := NewMockStorage()
	opts = append([]Option{WithStorage(storage), WithLogger(&MockLogger{})}, opts...)
	return New(opts...), storage
}

func TestStore_GetAbsentKey(t *testing.T) {
	store, _ := newTestStore(t)

	value, ok, err := store.Get(context.Background(), "neverWritten")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Set(ctx, RegionKey, "ja"))
	value, ok, err := store.Get(ctx, RegionKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ja", value)

	require.NoError(t, store.Set(ctx, ResizeSwitchStateKey, true))
	value, ok, err = store.Get(ctx, ResizeSwitchStateKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, true, value)

	require.NoError(t, store.Set(ctx, "lastPack", "line-1234"))
	value, ok, err = store.Get(ctx, "lastPack")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "line-1234", value)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.SetRegion(ctx, "ja"))
	require.NoError(t, store.SetRegion(ctx, "en"))

	region, err := store.Region(ctx)
	require.NoError(t, err)
	assert.Equal(t, "en", region)
}

func TestStore_TypedDefaults(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	region, err := store.Region(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, region)

	state, err := store.ResizeSwitchState(ctx)
	require.NoError(t, err)
	assert.False(t, state)

	require.NoError(t, store.SetResizeSwitchState(ctx, true))
	state, err = store.ResizeSwitchState(ctx)
	require.NoError(t, err)
	assert.True(t, state)
}

func TestStore_RegionEmptyFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	store, storage := newTestStore(t)

	require.NoError(t, storage.Set(ctx, &Preference{Namespace: DefaultNamespace, Key: RegionKey, Value: ""}))

	region, err := store.Region(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, region)
}

func TestStore_TypedAccessorWrongStoredType(t *testing.T) {
	ctx := context.Background()
	store, storage := newTestStore(t)

	require.NoError(t, storage.Set(ctx, &Preference{Namespace: DefaultNamespace, Key: ResizeSwitchStateKey, Value: "yes"}))

	_, err := store.ResizeSwitchState(ctx)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestStore_GetOrDefault(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	value, err := store.GetOrDefault(ctx, RegionKey)
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, value)

	value, err = store.GetOrDefault(ctx, "undefined")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStore_SetValidation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	assert.ErrorIs(t, store.Set(ctx, RegionKey, 42), ErrInvalidValue)
	assert.ErrorIs(t, store.Set(ctx, RegionKey, "not a language!"), ErrInvalidValue)
	assert.ErrorIs(t, store.Set(ctx, ResizeSwitchStateKey, "true"), ErrInvalidValue)
	assert.ErrorIs(t, store.Set(ctx, "free", make(chan int)), ErrInvalidValue)
	assert.ErrorIs(t, store.Set(ctx, "", "x"), ErrInvalidKey)

	_, _, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStore_StorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	store, storage := newTestStore(t)
	boom := errors.New("disk on fire")
	storage.FailWith(boom)

	_, _, err := store.Get(ctx, RegionKey)
	assert.ErrorIs(t, err, boom)

	err = store.Set(ctx, RegionKey, "ja")
	assert.ErrorIs(t, err, boom)

	_, err = store.Region(ctx)
	assert.ErrorIs(t, err, boom)

	_, err = store.All(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestStore_NoStorage(t *testing.T) {
	store := New(WithLogger(&MockLogger{}))

	_, _, err := store.Get(context.Background(), RegionKey)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, store.Set(context.Background(), RegionKey, "ja"), ErrStorageUnavailable)
}

func TestStore_CacheAside(t *testing.T) {
	ctx := context.Background()
	cache := NewMockCache()
	store, storage := newTestStore(t, WithCache(cache), WithCacheTTL(time.Minute))

	require.NoError(t, store.SetRegion(ctx, "ja"))
	assert.True(t, cache.Has("pref:moreStickers:region"))
	assert.Equal(t, time.Minute, cache.ttls["pref:moreStickers:region"])

	region, err := store.Region(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ja", region)
	assert.Equal(t, 0, storage.GetCalls(), "cached read must not reach storage")

	require.NoError(t, store.Delete(ctx, RegionKey))
	assert.False(t, cache.Has("pref:moreStickers:region"))

	_, ok, err := store.Get(ctx, RegionKey)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, storage.GetCalls())
}

func TestStore_CacheFilledOnRead(t *testing.T) {
	ctx := context.Background()
	cache := NewMockCache()
	store, storage := newTestStore(t, WithCache(cache))

	require.NoError(t, storage.Set(ctx, &Preference{Namespace: DefaultNamespace, Key: ResizeSwitchStateKey, Value: true}))

	state, err := store.ResizeSwitchState(ctx)
	require.NoError(t, err)
	assert.True(t, state)
	assert.True(t, cache.Has("pref:moreStickers:resizeSwitchState"))
}

func TestStore_DeleteAbsentKey(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Delete(context.Background(), "missing"))
}

func TestStore_AllAndNamespace(t *testing.T) {
	ctx := context.Background()
	storage := NewMockStorage()
	a := New(WithStorage(storage), WithLogger(&MockLogger{}))
	b := New(WithStorage(storage), WithLogger(&MockLogger{}), WithNamespace("otherPlugin"))

	require.NoError(t, a.SetRegion(ctx, "ja"))
	require.NoError(t, a.SetResizeSwitchState(ctx, true))
	require.NoError(t, b.SetRegion(ctx, "en"))

	all, err := a.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{RegionKey: "ja", ResizeSwitchStateKey: true}, all)

	region, err := b.Region(ctx)
	require.NoError(t, err)
	assert.Equal(t, "en", region)
	assert.Equal(t, "otherPlugin", b.Namespace())
}

func TestStore_Define(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	assert.ErrorIs(t, store.Define(PreferenceDefinition{Type: StringType}), ErrInvalidKey)
	assert.ErrorIs(t, store.Define(PreferenceDefinition{Key: "x", Type: "list"}), ErrInvalidType)
	assert.ErrorIs(t, store.Define(PreferenceDefinition{Key: "x", Type: BoolType, DefaultValue: "no"}), ErrInvalidValue)

	require.NoError(t, store.Define(PreferenceDefinition{
		Key:           "outputFormat",
		Type:          EnumType,
		DefaultValue:  "gif",
		AllowedValues: []interface{}{"gif", "png"},
	}))

	def, ok := store.Definition("outputFormat")
	require.True(t, ok)
	assert.Equal(t, "gif", def.DefaultValue)

	assert.ErrorIs(t, store.Set(ctx, "outputFormat", "webp"), ErrInvalidValue)
	assert.NoError(t, store.Set(ctx, "outputFormat", "png"))

	var keys []string
	for _, d := range store.Definitions() {
		keys = append(keys, d.Key)
	}
	assert.Equal(t, []string{"outputFormat", "region", "resizeSwitchState"}, keys)
}

func TestStore_DefineRejectsBuiltinKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	err := store.Define(PreferenceDefinition{Key: RegionKey, Type: BoolType})
	assert.ErrorIs(t, err, ErrInvalidKey)
	err = store.Define(PreferenceDefinition{Key: RegionKey, Type: StringType})
	assert.ErrorIs(t, err, ErrInvalidKey)
	err = store.Define(PreferenceDefinition{Key: ResizeSwitchStateKey, Type: StringType})
	assert.ErrorIs(t, err, ErrInvalidKey)

	// The region definition keeps its type and language check.
	assert.ErrorIs(t, store.Set(ctx, RegionKey, true), ErrInvalidValue)
	assert.ErrorIs(t, store.Set(ctx, RegionKey, "!!!bogus!!!"), ErrInvalidValue)
	require.NoError(t, store.SetRegion(ctx, "ja"))
	region, err := store.Region(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ja", region)

	def, ok := store.Definition(ResizeSwitchStateKey)
	require.True(t, ok)
	assert.Equal(t, BoolType, def.Type)
}

func TestStore_Close(t *testing.T) {
	cache := NewMockCache()
	store, storage := newTestStore(t, WithCache(cache))

	require.NoError(t, store.Close())
	assert.True(t, storage.closed)
	assert.True(t, cache.closed)
}
