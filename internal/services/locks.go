package services

import (
	"fmt"
	"sync"
)

// entityLocks hands out one mutex per entity key so that mutations on the
// same batch, order or trace chain serialize while different entities run
// fully in parallel. Lock ordering everywhere is order -> batch -> chain.
type entityLocks struct {
	m sync.Map
}

func (l *entityLocks) lock(key string) func() {
	v, _ := l.m.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func batchKey(cropID uint) string { return fmt.Sprintf("batch:%d", cropID) }
func orderKey(orderID uint) string { return fmt.Sprintf("order:%d", orderID) }
func chainKey(cropID uint) string { return fmt.Sprintf("chain:%d", cropID) }
