/*
 * @module service/session/store
 * @description 排布会话存储接口与会话构造，支撑分步Web流程的中间状态
 * @architecture 分层架构 - 会话状态层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 创建会话 -> 各步骤读写 -> 下载完成或过期后删除
 * @rules 会话带TTL；PurgeExpired返回被清除会话的工作目录供调用方删除磁盘产物
 * @dependencies github.com/google/uuid
 * @refs service/cleanup, api/controllers
 */

package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"runplan-service/service/models"
)

// DefaultTTL 会话默认存活时长
const DefaultTTL = 2 * time.Hour

// ErrNotFound 会话不存在或已过期
var ErrNotFound = errors.New("会话不存在或已过期")

// Store 会话存储
type Store interface {
	// Save 保存会话（新建或覆盖）
	Save(ctx context.Context, sess *models.PlanSession) error
	// Get 读取会话，不存在或已过期返回ErrNotFound
	Get(ctx context.Context, id string) (*models.PlanSession, error)
	// Delete 删除会话，返回其工作目录（可能为空）
	Delete(ctx context.Context, id string) (string, error)
	// PurgeExpired 清除所有过期会话，返回它们的工作目录
	PurgeExpired(ctx context.Context, now time.Time) ([]string, error)
	// Close 释放底层资源
	Close() error
}

// NewSession 创建一个带TTL的新会话
func NewSession(workDir string, ttl time.Duration) *models.PlanSession {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &models.PlanSession{
		ID:          uuid.New().String(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		WorkDir:     workDir,
		OutputFiles: make(map[string]string),
	}
}
