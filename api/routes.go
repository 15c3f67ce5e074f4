/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 无状态HTTP请求处理，分步流程状态保存在会话存储
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers
 */

package api

import (
	"runplan-service/api/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 排布流程
	r.Route("/api/plan", func(r chi.Router) {
		planController := controllers.NewPlanController()

		// 第一步：上传输入文件，生成芯片表供编辑
		r.Post("/generate-chips", planController.GenerateChips)

		// 第二步：套用编辑后的芯片表，生成文库表
		r.Post("/generate-libraries", planController.GenerateLibraries)

		// 第三步：生成结果工作簿
		r.Post("/generate-files", planController.GenerateFiles)

		// 下载结果文件：combined/library/chip
		r.Get("/download/{file_type}", planController.Download)

		// 清理会话
		r.Post("/cleanup", planController.Cleanup)

		// 无状态排布
		r.Post("/allocate", planController.Allocate)
	})
}
