package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/stacklok/catalog-ingester/internal/descriptors"
)

// Store is an in-memory Catalog. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	locations  []Location
	components map[string]map[string]descriptors.ComponentDescriptor
	storage    Storage
}

var _ Catalog = (*Store)(nil)

// StoreOption configures a Store
type StoreOption func(*Store)

// WithLocations seeds the store with locations
func WithLocations(locations ...Location) StoreOption {
	return func(s *Store) {
		s.locations = append(s.locations, locations...)
	}
}

// WithStorage persists a snapshot of the components after every change
func WithStorage(storage Storage) StoreOption {
	return func(s *Store) {
		s.storage = storage
	}
}

// NewStore creates an in-memory catalog
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		components: make(map[string]map[string]descriptors.ComponentDescriptor),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads previously persisted components from the configured storage.
// Components of locations the store does not know about are dropped.
func (s *Store) Restore(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	entries, err := s.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load catalog snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, entry := range entries {
		if s.indexOf(entry.LocationID) < 0 {
			slog.Debug("Dropping stored component of unknown location",
				"location", entry.LocationID,
				"component", entry.Component.GetName())
			continue
		}
		s.put(entry.LocationID, entry.Component)
		restored++
	}

	slog.Info("Catalog snapshot restored", "components", restored)
	return nil
}

// AddLocation registers a new location. The id must be unique.
func (s *Store) AddLocation(_ context.Context, location Location) error {
	if location.ID == "" || location.Type == "" {
		return fmt.Errorf("location id and type are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(location.ID) >= 0 {
		return fmt.Errorf("location %s already exists", location.ID)
	}
	s.locations = append(s.locations, location)
	return nil
}

// RemoveLocation removes a location together with its components
func (s *Store) RemoveLocation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, id)
	}

	removed := s.locations[idx]
	components, hadComponents := s.components[id]

	s.locations = slices.Delete(s.locations, idx, idx+1)
	delete(s.components, id)
	if err := s.persist(ctx); err != nil {
		// The snapshot still holds the location, so memory must too
		s.locations = slices.Insert(s.locations, idx, removed)
		if hadComponents {
			s.components[id] = components
		}
		return err
	}
	return nil
}

// Locations returns a copy of the current location list
func (s *Store) Locations(_ context.Context) ([]Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.locations), nil
}

// AddOrUpdateComponent stores a component under its location, replacing any
// component of the same name from that location
func (s *Store) AddOrUpdateComponent(
	ctx context.Context, locationID string, component descriptors.ComponentDescriptor,
) error {
	if isNilComponent(component) {
		return fmt.Errorf("%w: component cannot be nil", ErrInvalidComponent)
	}
	if component.GetName() == "" {
		return fmt.Errorf("%w: component name cannot be empty", ErrInvalidComponent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(locationID) < 0 {
		return fmt.Errorf("%w: %s", ErrLocationNotFound, locationID)
	}

	name := component.GetName()
	existing, hadExisting := s.components[locationID][name]
	if hadExisting && reflect.DeepEqual(existing, component) {
		return nil
	}

	s.put(locationID, component)
	if err := s.persist(ctx); err != nil {
		// Keep memory equal to the snapshot so the next upsert saves again
		if hadExisting {
			s.components[locationID][name] = existing
		} else {
			delete(s.components[locationID], name)
			if len(s.components[locationID]) == 0 {
				delete(s.components, locationID)
			}
		}
		return err
	}
	return nil
}

// Components returns every stored component ordered by location, then name
func (s *Store) Components(_ context.Context) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.entries()
}

// ComponentsForLocation returns the components of one location ordered by name
func (s *Store) ComponentsForLocation(_ context.Context, locationID string) ([]descriptors.ComponentDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.indexOf(locationID) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, locationID)
	}

	byName := s.components[locationID]
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)

	result := make([]descriptors.ComponentDescriptor, 0, len(names))
	for _, name := range names {
		result = append(result, byName[name])
	}
	return result, nil
}

func isNilComponent(component descriptors.ComponentDescriptor) bool {
	if component == nil {
		return true
	}
	v := reflect.ValueOf(component)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func (s *Store) indexOf(locationID string) int {
	return slices.IndexFunc(s.locations, func(l Location) bool {
		return l.ID == locationID
	})
}

func (s *Store) put(locationID string, component descriptors.ComponentDescriptor) {
	byName, ok := s.components[locationID]
	if !ok {
		byName = make(map[string]descriptors.ComponentDescriptor)
		s.components[locationID] = byName
	}
	byName[component.GetName()] = component
}

func (s *Store) entries() []Entry {
	var result []Entry
	for locationID, byName := range s.components {
		for _, component := range byName {
			result = append(result, Entry{LocationID: locationID, Component: component})
		}
	}

	slices.SortFunc(result, func(a, b Entry) int {
		if c := strings.Compare(a.LocationID, b.LocationID); c != 0 {
			return c
		}
		return strings.Compare(a.Component.GetName(), b.Component.GetName())
	})
	return result
}

// persist must be called with the write lock held
func (s *Store) persist(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	if err := s.storage.Save(ctx, s.entries()); err != nil {
		return fmt.Errorf("failed to persist catalog snapshot: %w", err)
	}
	return nil
}
