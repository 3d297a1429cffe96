package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const memoryScheme = "memory://"

// MemoryStore - 프로세스 메모리 ObjectStore (로컬 개발, 테스트용)
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	// PutHook - Put 직전에 호출, 에러를 반환하면 Put 실패
	PutHook func(folder string) error
}

// NewMemoryStore - 빈 MemoryStore 생성
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put - 고유 key로 저장
func (m *MemoryStore) Put(ctx context.Context, data []byte, folder string) (string, error) {
	if m.PutHook != nil {
		if err := m.PutHook(folder); err != nil {
			return "", err
		}
	}

	locator := memoryScheme + objectKey(folder, data)
	copied := make([]byte, len(data))
	copy(copied, data)

	m.mu.Lock()
	m.objects[locator] = copied
	m.mu.Unlock()
	return locator, nil
}

// Get - 저장된 바이너리 반환
func (m *MemoryStore) Get(ctx context.Context, locator string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.objects[locator]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object not found: %s", locator)
	}
	return data, nil
}

// Owns - memory:// locator인지
func (m *MemoryStore) Owns(locator string) bool {
	return strings.HasPrefix(locator, memoryScheme)
}

// Len - 저장된 object 수
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// Folders - 저장된 object의 folder 목록 (순서 무관)
func (m *MemoryStore) Folders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	folders := make([]string, 0, len(m.objects))
	for locator := range m.objects {
		key := strings.TrimPrefix(locator, memoryScheme)
		if idx := strings.LastIndex(key, "/"); idx >= 0 {
			folders = append(folders, key[:idx])
		} else {
			folders = append(folders, "")
		}
	}
	return folders
}
