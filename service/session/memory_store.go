/*
 * @module service/session/memory_store
 * @description 内存会话存储实现，单实例部署的默认选择
 * @architecture 分层架构 - 会话状态层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow Save/Get/Delete -> 定期PurgeExpired
 * @rules 读写持锁；Get对过期会话视同不存在
 * @dependencies sync
 * @refs service/init.go
 */

package session

import (
	"context"
	"sync"
	"time"

	"runplan-service/service/models"
)

// MemoryStore 内存会话存储
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.PlanSession
}

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.PlanSession)}
}

// Save 保存会话
func (s *MemoryStore) Save(ctx context.Context, sess *models.PlanSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

// Get 读取会话，过期视同不存在
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.PlanSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

// Delete 删除会话并返回其工作目录
func (s *MemoryStore) Delete(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return "", ErrNotFound
	}
	delete(s.sessions, id)
	return sess.WorkDir, nil
}

// PurgeExpired 清除过期会话
func (s *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var workDirs []string
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			if sess.WorkDir != "" {
				workDirs = append(workDirs, sess.WorkDir)
			}
			delete(s.sessions, id)
		}
	}
	return workDirs, nil
}

// Close 无资源可释放
func (s *MemoryStore) Close() error {
	return nil
}
