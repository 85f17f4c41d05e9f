package feederrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/angata1/PawBit/model"
)

type memRepo struct {
	mu      sync.RWMutex
	feeders map[string]model.Feeder
}

// NewMemory returns a catalogue holding copies of the given feeders.
func NewMemory(seed []model.Feeder) Repo {
	m := &memRepo{feeders: make(map[string]model.Feeder, len(seed))}
	for _, f := range seed {
		m.feeders[f.ID] = f
	}
	return m
}

// DemoFeeders is the network the app ships with for development.
func DemoFeeders() []model.Feeder {
	return []model.Feeder{
		{
			ID: "1", Name: "Central Park Feeder",
			Location:  model.Location{Lat: 42.6977, Lng: 23.3219, Address: "Central Park, Sofia"},
			Status:    model.FeederActive, FoodLevel: 80, AnimalsDetected: 2,
			LiveStreamURL: "https://images.unsplash.com/photo-1548767797-d8c844163c4c?q=80&w=2070&auto=format&fit=crop",
		},
		{
			ID: "2", Name: "Vitosha Blvd Station",
			Location:  model.Location{Lat: 42.6920, Lng: 23.3200, Address: "Vitosha Blvd, Sofia"},
			Status:    model.FeederActive, FoodLevel: 45, AnimalsDetected: 0,
			LiveStreamURL: "https://images.unsplash.com/photo-1514888286974-6c03e2ca1dba?q=80&w=2043&auto=format&fit=crop",
		},
		{
			ID: "3", Name: "NDK Park Unit",
			Location:  model.Location{Lat: 42.6850, Lng: 23.3190, Address: "National Palace of Culture"},
			Status:    model.FeederMaintenance, FoodLevel: 10, AnimalsDetected: 5,
			LiveStreamURL: "https://images.unsplash.com/photo-1519052537078-e6302a4968ef?q=80&w=1744&auto=format&fit=crop",
		},
	}
}

func (m *memRepo) List(_ context.Context) ([]model.Feeder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Feeder, 0, len(m.feeders))
	for _, f := range m.feeders {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id string) (*model.Feeder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.feeders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *memRepo) TouchFed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feeders[id]
	if !ok {
		return ErrNotFound
	}
	f.LastFeedingAt = &at
	m.feeders[id] = f
	return nil
}
