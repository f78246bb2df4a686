package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/catalog-ingester/internal/catalog"
	"github.com/stacklok/catalog-ingester/internal/catalog/mocks"
	"github.com/stacklok/catalog-ingester/internal/descriptors"
)

func newComponent(name, componentType string) *descriptors.ComponentDescriptorV1 {
	return &descriptors.ComponentDescriptorV1{
		APIVersion: descriptors.ComponentV1APIVersion,
		Kind:       descriptors.ComponentKind,
		Metadata:   descriptors.ComponentMetadataV1{Name: name},
		Spec:       descriptors.ComponentSpecV1{Type: componentType},
	}
}

func TestStore_Locations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := catalog.NewStore(catalog.WithLocations(
		catalog.Location{ID: "a", Type: "file", Target: "a.yaml"},
	))
	require.NoError(t, store.AddLocation(ctx, catalog.Location{ID: "b", Type: "url", Target: "https://example.com/b.yaml"}))

	locations, err := store.Locations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "a", locations[0].ID)
	assert.Equal(t, "b", locations[1].ID)

	// Mutating the returned list does not affect the store
	locations[0].ID = "changed"
	again, err := store.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].ID)
}

func TestStore_AddLocation_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := catalog.NewStore(catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}))

	assert.Error(t, store.AddLocation(ctx, catalog.Location{ID: "a", Type: "file"}))
	assert.Error(t, store.AddLocation(ctx, catalog.Location{ID: "", Type: "file"}))
	assert.Error(t, store.AddLocation(ctx, catalog.Location{ID: "c"}))
}

func TestStore_AddOrUpdateComponent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := catalog.NewStore(catalog.WithLocations(
		catalog.Location{ID: "a", Type: "file"},
		catalog.Location{ID: "b", Type: "file"},
	))

	require.NoError(t, store.AddOrUpdateComponent(ctx, "a", newComponent("svc-a", "service")))
	require.NoError(t, store.AddOrUpdateComponent(ctx, "a", newComponent("svc-a", "website")))
	require.NoError(t, store.AddOrUpdateComponent(ctx, "b", newComponent("svc-a", "library")))

	components, err := store.ComponentsForLocation(ctx, "a")
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "website", components[0].(*descriptors.ComponentDescriptorV1).Spec.Type)

	entries := store.Components(ctx)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].LocationID)
	assert.Equal(t, "b", entries[1].LocationID)
}

func TestStore_AddOrUpdateComponent_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := catalog.NewStore(catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}))

	err := store.AddOrUpdateComponent(ctx, "missing", newComponent("svc-a", "service"))
	assert.True(t, errors.Is(err, catalog.ErrLocationNotFound))

	err = store.AddOrUpdateComponent(ctx, "a", nil)
	assert.True(t, errors.Is(err, catalog.ErrInvalidComponent))

	var typedNil *descriptors.ComponentDescriptorV1
	err = store.AddOrUpdateComponent(ctx, "a", typedNil)
	assert.True(t, errors.Is(err, catalog.ErrInvalidComponent))

	err = store.AddOrUpdateComponent(ctx, "a", newComponent("", "service"))
	assert.True(t, errors.Is(err, catalog.ErrInvalidComponent))
}

func TestStore_RemoveLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := catalog.NewStore(catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}))
	require.NoError(t, store.AddOrUpdateComponent(ctx, "a", newComponent("svc-a", "service")))

	require.NoError(t, store.RemoveLocation(ctx, "a"))
	assert.Empty(t, store.Components(ctx))

	_, err := store.ComponentsForLocation(ctx, "a")
	assert.True(t, errors.Is(err, catalog.ErrLocationNotFound))
	assert.True(t, errors.Is(store.RemoveLocation(ctx, "a"), catalog.ErrLocationNotFound))
}

func TestStore_PersistsChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)

	store := catalog.NewStore(
		catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}),
		catalog.WithStorage(storage),
	)

	component := newComponent("svc-a", "service")
	storage.EXPECT().
		Save(gomock.Any(), []catalog.Entry{{LocationID: "a", Component: component}}).
		Return(nil).
		Times(1)

	require.NoError(t, store.AddOrUpdateComponent(ctx, "a", component))
	// An identical component does not trigger another save
	require.NoError(t, store.AddOrUpdateComponent(ctx, "a", newComponent("svc-a", "service")))
}

func TestStore_PersistFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("new component is not kept and is saved again on retry", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		storage := mocks.NewMockStorage(ctrl)
		component := newComponent("svc-a", "service")
		gomock.InOrder(
			storage.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
			storage.EXPECT().
				Save(gomock.Any(), []catalog.Entry{{LocationID: "a", Component: component}}).
				Return(nil),
		)

		store := catalog.NewStore(
			catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}),
			catalog.WithStorage(storage),
		)

		err := store.AddOrUpdateComponent(ctx, "a", component)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Empty(t, store.Components(ctx))

		require.NoError(t, store.AddOrUpdateComponent(ctx, "a", component))
		assert.Len(t, store.Components(ctx), 1)
	})

	t.Run("updated component keeps its previous version", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		storage := mocks.NewMockStorage(ctrl)
		gomock.InOrder(
			storage.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
			storage.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
		)

		store := catalog.NewStore(
			catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}),
			catalog.WithStorage(storage),
		)

		require.NoError(t, store.AddOrUpdateComponent(ctx, "a", newComponent("svc-a", "service")))
		require.Error(t, store.AddOrUpdateComponent(ctx, "a", newComponent("svc-a", "website")))

		components, err := store.ComponentsForLocation(ctx, "a")
		require.NoError(t, err)
		require.Len(t, components, 1)
		assert.Equal(t, newComponent("svc-a", "service"), components[0])
	})

	t.Run("removed location is restored", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		storage := mocks.NewMockStorage(ctrl)
		gomock.InOrder(
			storage.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil),
			storage.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
		)

		locations := []catalog.Location{{ID: "a", Type: "file"}, {ID: "b", Type: "url"}}
		store := catalog.NewStore(catalog.WithLocations(locations...), catalog.WithStorage(storage))

		require.NoError(t, store.AddOrUpdateComponent(ctx, "a", newComponent("svc-a", "service")))
		require.Error(t, store.RemoveLocation(ctx, "a"))

		got, err := store.Locations(ctx)
		require.NoError(t, err)
		assert.Equal(t, locations, got)
		assert.Len(t, store.Components(ctx), 1)
	})
}

func TestStore_Restore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	storage := mocks.NewMockStorage(ctrl)
	storage.EXPECT().Load(gomock.Any()).Return([]catalog.Entry{
		{LocationID: "a", Component: newComponent("svc-a", "service")},
		{LocationID: "gone", Component: newComponent("svc-b", "service")},
	}, nil)

	store := catalog.NewStore(
		catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}),
		catalog.WithStorage(storage),
	)
	require.NoError(t, store.Restore(ctx))

	entries := store.Components(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, "svc-a", entries[0].Component.GetName())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := catalog.NewStore(catalog.WithLocations(catalog.Location{ID: "a", Type: "file"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.AddOrUpdateComponent(ctx, "a", newComponent("svc", "service"))
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Locations(ctx)
			_ = store.Components(ctx)
		}()
	}
	wg.Wait()

	assert.Len(t, store.Components(ctx), 1)
}
