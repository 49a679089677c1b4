package facecache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kozaktomas/face-finder/internal/constants"
	"github.com/kozaktomas/face-finder/internal/facematch"
)

// Memory is a bounded in-process LRU cache.
type Memory struct {
	lru *lru.Cache[string, *facematch.Observation]
}

var _ Cache = (*Memory)(nil)

// NewMemory creates an LRU cache holding up to size observations.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = constants.DefaultFaceCacheSize
	}
	c, err := lru.New[string, *facematch.Observation](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &Memory{lru: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) (*facematch.Observation, bool, error) {
	obs, ok := m.lru.Get(key)
	return obs, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, obs *facematch.Observation) error {
	m.lru.Add(key, obs)
	return nil
}

// Len returns the number of cached images.
func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
