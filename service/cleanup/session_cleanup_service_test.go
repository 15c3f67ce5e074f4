/*
 * @module service/cleanup/session_cleanup_service_test
 * @description 会话清理服务单元测试：过期会话清除、工作目录删除与调度器启停
 * @architecture 测试层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 构造过期会话 -> CleanupExpiredSessions -> 断言存储与磁盘
 * @rules 清理只影响过期会话及其目录
 * @dependencies testing, stretchr/testify
 */

package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runplan-service/service/session"
)

func TestCleanupExpiredSessions(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	expiredDir := filepath.Join(t.TempDir(), "expired-work")
	require.NoError(t, os.MkdirAll(expiredDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(expiredDir, "输入表.xlsx"), []byte("x"), 0o644))

	expired := session.NewSession(expiredDir, time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(ctx, expired))

	liveDir := t.TempDir()
	live := session.NewSession(liveDir, time.Hour)
	require.NoError(t, store.Save(ctx, live))

	svc := NewSessionCleanupService(store)
	purged, err := svc.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, statErr := os.Stat(expiredDir)
	assert.True(t, os.IsNotExist(statErr), "过期会话的工作目录应被删除")
	_, statErr = os.Stat(liveDir)
	assert.NoError(t, statErr, "未过期会话的目录不受影响")

	_, err = store.Get(ctx, live.ID)
	assert.NoError(t, err)
}

func TestCleanupNoExpiredSessions(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(ctx, session.NewSession(t.TempDir(), time.Hour)))

	purged, err := NewSessionCleanupService(store).CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestScheduledCleanupStartStop(t *testing.T) {
	svc := NewSessionCleanupService(session.NewMemoryStore())

	require.NoError(t, svc.StartScheduledCleanup())
	assert.Error(t, svc.StartScheduledCleanup(), "重复启动应报错")

	svc.StopScheduledCleanup()
	svc.StopScheduledCleanup() // 重复停止安全
}
