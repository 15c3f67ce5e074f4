/*
 * @module service/init
 * @description 服务初始化模块，负责会话存储选择、编排服务与后台清理任务的启动
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules SESSION_STORE=redis 时使用Redis会话存储，连接失败回落内存存储
 * @dependencies 无
 * @refs api/routes.go, main.go
 */

package service

import (
	"log"
	"os"

	"runplan-service/service/cleanup"
	"runplan-service/service/session"
)

var (
	GlobalSessionStore   session.Store
	GlobalPlanService    *PlanService
	GlobalCleanupService *cleanup.SessionCleanupService
)

func init() {
	initSessionStore()
	initServices()
}

// initSessionStore 初始化会话存储
func initSessionStore() {
	if getEnvWithDefault("SESSION_BACKEND", "memory") == "redis" {
		store, err := session.NewRedisStore()
		if err != nil {
			log.Printf("Redis会话存储初始化失败，回落内存存储: %v", err)
		} else {
			GlobalSessionStore = store
			log.Println("使用Redis会话存储")
			return
		}
	}
	GlobalSessionStore = session.NewMemoryStore()
	log.Println("使用内存会话存储")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// initServices 初始化服务
func initServices() {
	GlobalPlanService = NewPlanService(GlobalSessionStore)

	GlobalCleanupService = cleanup.NewSessionCleanupService(GlobalSessionStore)
	if err := GlobalCleanupService.StartScheduledCleanup(); err != nil {
		log.Printf("启动会话清理调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}
