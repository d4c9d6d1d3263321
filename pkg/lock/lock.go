// Package lock 提供按 key 粒度的内存锁管理器
package lock

import (
	"sync"
)

// KeyedMutex 按 key 粒度的内存锁管理器，用于串行化同一行上的并发操作
type KeyedMutex struct {
	locks sync.Map // map[string]*sync.Mutex
}

// NewKeyedMutex 创建锁管理器
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock 获取指定 key 的锁
func (m *KeyedMutex) Lock(key string) {
	m.getLock(key).Lock()
}

// Unlock 释放指定 key 的锁
func (m *KeyedMutex) Unlock(key string) {
	m.getLock(key).Unlock()
}

// WithLock 持有 key 锁执行 fn
func (m *KeyedMutex) WithLock(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func (m *KeyedMutex) getLock(key string) *sync.Mutex {
	actual, _ := m.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}
