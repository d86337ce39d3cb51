package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"patrolops/api/internal/docstore"
	"patrolops/api/internal/model"
	"patrolops/api/internal/textnorm"
)

// CatalogService owns the ordered reference lists. Every mutation writes the
// whole resulting list; callers only see the new list once the write succeeded.
type CatalogService struct {
	store  docstore.Store
	logger *zap.Logger
	mu     sync.Mutex
}

// NewCatalogService creates a catalog service
func NewCatalogService(store docstore.Store, logger *zap.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

func checkStringCatalog(key model.CatalogKey) error {
	if _, err := model.ParseCatalogKey(string(key)); err != nil {
		return fmt.Errorf("%w: catalog %q", ErrNotFound, key)
	}
	return nil
}

// load reads a string catalog, seeding its defaults the first time.
func (s *CatalogService) load(ctx context.Context, key model.CatalogKey) ([]string, error) {
	var list []string
	found, err := docstore.GetJSON(ctx, s.store, key.StoreKey(), &list)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", key, err)
	}
	if found {
		return list, nil
	}
	list = append([]string(nil), model.DefaultCatalogs[key]...)
	if err := docstore.SetJSON(ctx, s.store, key.StoreKey(), list); err != nil {
		s.logger.Warn("seeding catalog failed", zap.String("catalog", string(key)), zap.Error(err))
	}
	return list, nil
}

func (s *CatalogService) save(ctx context.Context, key model.CatalogKey, list []string) error {
	if list == nil {
		list = []string{}
	}
	if err := docstore.SetJSON(ctx, s.store, key.StoreKey(), list); err != nil {
		s.logger.Error("persist catalog failed", zap.String("catalog", string(key)), zap.Error(err))
		return fmt.Errorf("persist catalog %s: %w", key, err)
	}
	return nil
}

// List returns a string catalog in display order.
func (s *CatalogService) List(ctx context.Context, key model.CatalogKey) ([]string, error) {
	if err := checkStringCatalog(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, key)
}

// Contains reports whether value, once normalized, is in the catalog.
func (s *CatalogService) Contains(ctx context.Context, key model.CatalogKey, value string) (bool, error) {
	list, err := s.List(ctx, key)
	if err != nil {
		return false, err
	}
	v := textnorm.Normalize(value)
	for _, item := range list {
		if item == v {
			return true, nil
		}
	}
	return false, nil
}

// Append adds a normalized value at the end of the catalog. Empty and
// duplicate values are rejected and leave the catalog unchanged.
func (s *CatalogService) Append(ctx context.Context, key model.CatalogKey, value string) ([]string, error) {
	if err := checkStringCatalog(key); err != nil {
		return nil, err
	}
	v := textnorm.Normalize(value)
	if v == "" {
		return nil, invalid("value", "required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	for _, item := range list {
		if item == v {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, v)
		}
	}
	next := append(append(make([]string, 0, len(list)+1), list...), v)
	if err := s.save(ctx, key, next); err != nil {
		return nil, err
	}
	s.logger.Info("catalog value added", zap.String("catalog", string(key)), zap.String("value", v))
	return next, nil
}

// Remove deletes the first entry equal to value, compared the way Append
// stores it.
func (s *CatalogService) Remove(ctx context.Context, key model.CatalogKey, value string) ([]string, error) {
	if err := checkStringCatalog(key); err != nil {
		return nil, err
	}
	normalized := textnorm.Normalize(value)

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, item := range list {
		if item == normalized || item == value {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in catalog %s", ErrNotFound, value, key)
	}
	next := make([]string, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	if err := s.save(ctx, key, next); err != nil {
		return nil, err
	}
	s.logger.Info("catalog value removed", zap.String("catalog", string(key)), zap.String("value", value))
	return next, nil
}

// Reorder swaps the entry at index with its neighbour. Moving past either end
// is a no-op.
func (s *CatalogService) Reorder(ctx context.Context, key model.CatalogKey, index int, dir model.Direction) ([]string, error) {
	if err := checkStringCatalog(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	next, moved, err := swapNeighbour(list, index, dir)
	if err != nil || !moved {
		return next, err
	}
	if err := s.save(ctx, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// SortAlphabetically replaces the catalog with a sorted copy.
func (s *CatalogService) SortAlphabetically(ctx context.Context, key model.CatalogKey) ([]string, error) {
	if err := checkStringCatalog(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	next := append([]string(nil), list...)
	sort.Strings(next)
	if err := s.save(ctx, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Replace overwrites a catalog with normalized, de-duplicated values.
func (s *CatalogService) Replace(ctx context.Context, key model.CatalogKey, values []string) ([]string, error) {
	if err := checkStringCatalog(key); err != nil {
		return nil, err
	}
	next := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = textnorm.Normalize(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		next = append(next, v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, key, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ========== colonies ==========

func (s *CatalogService) loadColonies(ctx context.Context) ([]model.CatalogEntry, error) {
	var list []model.CatalogEntry
	found, err := docstore.GetJSON(ctx, s.store, model.CatalogColonies.StoreKey(), &list)
	if err != nil {
		return nil, fmt.Errorf("load colonies: %w", err)
	}
	if found {
		return list, nil
	}
	list = append([]model.CatalogEntry(nil), model.DefaultColonies...)
	if err := docstore.SetJSON(ctx, s.store, model.CatalogColonies.StoreKey(), list); err != nil {
		s.logger.Warn("seeding colonies failed", zap.Error(err))
	}
	return list, nil
}

func (s *CatalogService) saveColonies(ctx context.Context, list []model.CatalogEntry) error {
	if list == nil {
		list = []model.CatalogEntry{}
	}
	if err := docstore.SetJSON(ctx, s.store, model.CatalogColonies.StoreKey(), list); err != nil {
		s.logger.Error("persist colonies failed", zap.Error(err))
		return fmt.Errorf("persist colonies: %w", err)
	}
	return nil
}

// ListColonies returns the colony catalog in display order.
func (s *CatalogService) ListColonies(ctx context.Context) ([]model.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadColonies(ctx)
}

// ColoniesForRegion returns the distinct colony names of region, sorted.
func (s *CatalogService) ColoniesForRegion(ctx context.Context, region string) ([]string, error) {
	list, err := s.ListColonies(ctx)
	if err != nil {
		return nil, err
	}
	region = textnorm.Normalize(region)
	seen := make(map[string]bool)
	out := []string{}
	for _, e := range list {
		if textnorm.Normalize(e.Region) != region {
			continue
		}
		c := textnorm.Normalize(e.Colony)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// AppendColony adds a colony. A (region, colony) pair already present is
// rejected with ErrDuplicateColony and the catalog is left unchanged.
func (s *CatalogService) AppendColony(ctx context.Context, entry model.CatalogEntry) ([]model.CatalogEntry, error) {
	entry = model.CatalogEntry{
		Region:   textnorm.Normalize(entry.Region),
		Quadrant: textnorm.Normalize(entry.Quadrant),
		Colony:   textnorm.Normalize(entry.Colony),
	}
	var v validator
	v.require("region", entry.Region)
	v.require("quadrant", entry.Quadrant)
	v.require("colony", entry.Colony)
	if err := v.err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.loadColonies(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range list {
		if e.Region == entry.Region && e.Colony == entry.Colony {
			return nil, fmt.Errorf("%w: %s / %s", ErrDuplicateColony, entry.Region, entry.Colony)
		}
	}
	next := append(append(make([]model.CatalogEntry, 0, len(list)+1), list...), entry)
	if err := s.saveColonies(ctx, next); err != nil {
		return nil, err
	}
	s.logger.Info("colony added",
		zap.String("region", entry.Region),
		zap.String("quadrant", entry.Quadrant),
		zap.String("colony", entry.Colony))
	return next, nil
}

// RemoveColony deletes the colony of region.
func (s *CatalogService) RemoveColony(ctx context.Context, region, colony string) ([]model.CatalogEntry, error) {
	region, colony = textnorm.Normalize(region), textnorm.Normalize(colony)

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.loadColonies(ctx)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, e := range list {
		if e.Region == region && e.Colony == colony {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: colony %s / %s", ErrNotFound, region, colony)
	}
	next := make([]model.CatalogEntry, 0, len(list)-1)
	next = append(next, list[:idx]...)
	next = append(next, list[idx+1:]...)
	if err := s.saveColonies(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ReorderColonies swaps the colony at index with its neighbour.
func (s *CatalogService) ReorderColonies(ctx context.Context, index int, dir model.Direction) ([]model.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.loadColonies(ctx)
	if err != nil {
		return nil, err
	}
	next, moved, err := swapNeighbour(list, index, dir)
	if err != nil || !moved {
		return next, err
	}
	if err := s.saveColonies(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// SortColonies sorts the colony catalog by colony name.
func (s *CatalogService) SortColonies(ctx context.Context) ([]model.CatalogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.loadColonies(ctx)
	if err != nil {
		return nil, err
	}
	next := append([]model.CatalogEntry(nil), list...)
	sort.SliceStable(next, func(i, j int) bool { return next[i].Colony < next[j].Colony })
	if err := s.saveColonies(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// swapNeighbour returns a copy of list with index swapped toward dir. moved is
// false at the list boundaries, in which case list itself is returned.
func swapNeighbour[T any](list []T, index int, dir model.Direction) ([]T, bool, error) {
	if index < 0 || index >= len(list) {
		return nil, false, invalid("index", fmt.Sprintf("out of range [0,%d)", len(list)))
	}
	var target int
	switch dir {
	case model.DirectionUp:
		target = index - 1
	case model.DirectionDown:
		target = index + 1
	default:
		return nil, false, invalid("direction", "must be up or down")
	}
	if target < 0 || target >= len(list) {
		return list, false, nil
	}
	next := append([]T(nil), list...)
	next[index], next[target] = next[target], next[index]
	return next, true, nil
}
