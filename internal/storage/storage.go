package storage

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eugenenazirov/apheresis/internal/cryo"
)

const maxContainerTypes = 10

var (
	// ErrInvalidContainerTypes indicates the provided container types violate validation rules.
	ErrInvalidContainerTypes = errors.New("container types must contain between 1 and 10 valid entries")
)

var defaultContainerTypes = []cryo.ContainerType{
	{Name: "Cryovial", MinVolumeMl: 1, MaxVolumeMl: 1, Role: cryo.RoleCryovial},
	{Name: "Small bag", MinVolumeMl: 15, MaxVolumeMl: 85},
	{Name: "Large bag", MinVolumeMl: 40, MaxVolumeMl: 160},
}

// Storage provides access to the container catalogue used when a plan
// request does not bring its own container types.
type Storage interface {
	GetContainerTypes() ([]cryo.ContainerType, error)
	SetContainerTypes(types []cryo.ContainerType) error
}

// MemoryStorage keeps container types in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu    sync.RWMutex
	types []cryo.ContainerType
}

// NewMemoryStorage initialises storage with a copy of the default container types.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		types: clone(defaultContainerTypes),
	}
}

// DefaultContainerTypes returns a copy of the default catalogue.
func DefaultContainerTypes() []cryo.ContainerType {
	return clone(defaultContainerTypes)
}

// GetContainerTypes returns a copy of the current catalogue in insertion order.
func (s *MemoryStorage) GetContainerTypes() ([]cryo.ContainerType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clone(s.types), nil
}

// SetContainerTypes validates, normalises, and stores the provided container types.
func (s *MemoryStorage) SetContainerTypes(types []cryo.ContainerType) error {
	normalized, err := NormalizeContainerTypes(types)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.types = normalized
	s.mu.Unlock()

	return nil
}

// NormalizeContainerTypes trims names and validates the list. The returned
// error wraps both ErrInvalidContainerTypes and the validation problems.
func NormalizeContainerTypes(types []cryo.ContainerType) ([]cryo.ContainerType, error) {
	if len(types) == 0 || len(types) > maxContainerTypes {
		return nil, ErrInvalidContainerTypes
	}

	out := clone(types)
	for i := range out {
		out[i].Name = strings.TrimSpace(out[i].Name)
	}
	if err := cryo.ValidateContainerTypes(out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContainerTypes, err)
	}
	return out, nil
}

func clone(src []cryo.ContainerType) []cryo.ContainerType {
	if len(src) == 0 {
		return []cryo.ContainerType{}
	}

	out := make([]cryo.ContainerType, len(src))
	copy(out, src)
	return out
}
