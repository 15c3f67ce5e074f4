/*
 * @module service/cleanup/session_cleanup_service
 * @description 会话清理服务，负责定期清除过期的排布会话并回收其临时工作目录
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 定时触发 -> 清除过期会话 -> 删除工作目录 -> 记录结果
 * @rules 工作目录删除失败只告警不中断，留给下一轮重试
 * @dependencies github.com/robfig/cron/v3
 * @refs service/session, service/init.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"runplan-service/service/session"
)

// DefaultCleanupSpec 每10分钟执行一次清理
// Cron表达式：秒 分 时 日 月 周
const DefaultCleanupSpec = "0 */10 * * * *"

// SessionCleanupService 会话清理服务
type SessionCleanupService struct {
	store   session.Store
	cron    *cron.Cron
	spec    string
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewSessionCleanupService 创建会话清理服务实例
func NewSessionCleanupService(store session.Store) *SessionCleanupService {
	ctx, cancel := context.WithCancel(context.Background())

	return &SessionCleanupService{
		store:  store,
		cron:   cron.New(cron.WithSeconds()),
		spec:   DefaultCleanupSpec,
		ctx:    ctx,
		cancel: cancel,
	}
}

// CleanupExpiredSessions 清除过期会话并删除其工作目录，返回清除数量
func (s *SessionCleanupService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	startTime := time.Now()

	workDirs, err := s.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		return len(workDirs), fmt.Errorf("清除过期会话失败: %w", err)
	}

	removed := 0
	for _, dir := range workDirs {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("删除会话工作目录失败", "dir", dir, "error", err)
			continue
		}
		removed++
	}

	if len(workDirs) > 0 {
		slog.Info("会话清理完成",
			"purged_sessions", len(workDirs),
			"removed_dirs", removed,
			"duration_ms", time.Since(startTime).Milliseconds())
	}
	return len(workDirs), nil
}

// StartScheduledCleanup 启动定时清理任务
func (s *SessionCleanupService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("会话清理调度器已经启动")
	}

	slog.Info("启动会话清理调度器", "spec", s.spec)

	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.CleanupExpiredSessions(s.ctx); err != nil {
			slog.Error("定时会话清理任务失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true
	return nil
}

// StopScheduledCleanup 停止定时清理任务
func (s *SessionCleanupService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	slog.Info("停止会话清理调度器")
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	s.started = false
}
