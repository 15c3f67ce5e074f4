/*
 * @module api/controllers/plan_controller
 * @description 排布流程控制器：上传输入生成芯片表、套用编辑生成文库表、产出与下载结果文件
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 生成芯片表 -> 用户编辑 -> 生成文库表 -> 生成文件 -> 下载 -> 清理
 * @rules 分步接口依赖会话ID；配置类错误返回400，会话缺失返回404
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/plan_service.go, service/session
 */

package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"

	"runplan-service/service"
	"runplan-service/service/allocation"
	"runplan-service/service/models"
	"runplan-service/service/session"
)

const maxUploadSize = 32 << 20

// PlanController 排布流程控制器
type PlanController struct {
	planService *service.PlanService
}

// NewPlanController 创建排布流程控制器实例
func NewPlanController() *PlanController {
	return &PlanController{planService: service.GlobalPlanService}
}

// uploadFields 表单文件字段到工作目录内文件名的映射
var uploadFields = map[string]string{
	"input":     "输入表.xlsx",
	"rules":     "规则.xlsx",
	"nc":        "NC列表.xlsx",
	"pc":        "PC列表.xlsx",
	"species":   "物种列表.xlsx",
	"sequencer": "测序仪对应关系.xlsx",
	"template":  "模版.xlsx",
}

// saveUpload 把一个表单文件保存到工作目录
func saveUpload(file multipart.File, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, file)
	return err
}

// collectUploads 保存表单中出现的输入文件，返回各文件落盘路径
func collectUploads(r *http.Request, workDir string) (service.UploadPaths, error) {
	var paths service.UploadPaths
	targets := map[string]*string{
		"input":     &paths.Input,
		"rules":     &paths.Rules,
		"nc":        &paths.NC,
		"pc":        &paths.PC,
		"species":   &paths.Species,
		"sequencer": &paths.Sequencer,
		"template":  &paths.Template,
	}

	for field, target := range targets {
		file, _, err := r.FormFile(field)
		if err == http.ErrMissingFile {
			continue
		}
		if err != nil {
			return paths, fmt.Errorf("读取上传文件 %s 失败: %w", field, err)
		}
		dst := filepath.Join(workDir, uploadFields[field])
		saveErr := saveUpload(file, dst)
		file.Close()
		if saveErr != nil {
			return paths, fmt.Errorf("保存上传文件 %s 失败: %w", field, saveErr)
		}
		*target = dst
	}

	if paths.Input == "" {
		return paths, fmt.Errorf("缺少输入表文件（字段 input）")
	}
	return paths, nil
}

// writeError 按错误类型映射HTTP语义
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var cfgErr *allocation.ConfigError
	var dataErr *allocation.DataError
	switch {
	case errors.Is(err, session.ErrNotFound):
		render.JSON(w, r, NotFoundResponse(msg, err))
	case errors.As(err, &cfgErr), errors.As(err, &dataErr):
		render.JSON(w, r, BadRequestResponse(msg, err))
	default:
		render.JSON(w, r, InternalErrorResponse(msg, err))
	}
}

// GenerateChipsResponse 第一步响应：会话ID与供编辑的芯片表
type GenerateChipsResponse struct {
	SessionID string                  `json:"session_id"`
	Chips     []models.ChipRecord     `json:"chips"`
	Warnings  []models.Warning        `json:"warnings,omitempty"`
	Config    models.AllocationConfig `json:"config"`
}

// GenerateChips 第一步：上传输入文件，执行排布并返回芯片表
// @Summary 生成芯片表
// @Description 上传输入表与参考文件，执行排布并返回供编辑的芯片表
// @Tags 排布流程
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} APIResponse{data=GenerateChipsResponse}
// @Router /api/plan/generate-chips [post]
func (c *PlanController) GenerateChips(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		render.JSON(w, r, BadRequestResponse("解析上传表单失败", err))
		return
	}

	// WORK_DIR指定会话工作目录的父目录，缺省用系统临时目录
	workDir, err := os.MkdirTemp(os.Getenv("WORK_DIR"), "runplan-*")
	if err != nil {
		render.JSON(w, r, InternalErrorResponse("创建工作目录失败", err))
		return
	}

	paths, err := collectUploads(r, workDir)
	if err != nil {
		os.RemoveAll(workDir)
		render.JSON(w, r, BadRequestResponse("上传文件不完整", err))
		return
	}

	overrides := service.PlanOverrides{
		Project:      r.FormValue("project"),
		ChipCapacity: cast.ToInt(r.FormValue("chip_capacity")),
		StartDate:    r.FormValue("start_date"),
		Seed:         cast.ToInt64(r.FormValue("seed")),
	}

	sess, err := c.planService.CreatePlan(r.Context(), workDir, paths, overrides)
	if err != nil {
		os.RemoveAll(workDir)
		writeError(w, r, "排布失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("芯片表生成成功", GenerateChipsResponse{
		SessionID: sess.ID,
		Chips:     sess.Plan.Chips,
		Warnings:  sess.Plan.Warnings,
		Config:    sess.Config,
	}))
}

// GenerateLibrariesRequest 第二步请求：编辑后的芯片表
type GenerateLibrariesRequest struct {
	SessionID string              `json:"session_id"`
	Chips     []models.ChipRecord `json:"chips"`
}

// GenerateLibrariesResponse 第二步响应：回填后的文库表与芯片表
type GenerateLibrariesResponse struct {
	SessionID string                 `json:"session_id"`
	Libraries []models.LibraryRecord `json:"libraries"`
	Chips     []models.ChipRecord    `json:"chips"`
	Warnings  []models.Warning       `json:"warnings,omitempty"`
}

// GenerateLibraries 第二步：套用用户编辑的芯片表，返回回填后的文库表
// @Summary 生成文库表
// @Description 套用用户编辑后的芯片表并回填文库记录
// @Tags 排布流程
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse{data=GenerateLibrariesResponse}
// @Router /api/plan/generate-libraries [post]
func (c *PlanController) GenerateLibraries(w http.ResponseWriter, r *http.Request) {
	var req GenerateLibrariesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}
	if req.SessionID == "" {
		render.JSON(w, r, BadRequestResponse("缺少会话ID", nil))
		return
	}

	sess, err := c.planService.ApplyChipEdits(r.Context(), req.SessionID, req.Chips)
	if err != nil {
		writeError(w, r, "生成文库表失败", err)
		return
	}

	render.JSON(w, r, SuccessResponse("文库表生成成功", GenerateLibrariesResponse{
		SessionID: sess.ID,
		Libraries: sess.Plan.Libraries,
		Chips:     sess.Plan.Chips,
		Warnings:  sess.Plan.Warnings,
	}))
}

// SessionRequest 只带会话ID的请求体
type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// GenerateFiles 第三步：生成结果工作簿
// @Summary 生成结果文件
// @Description 把当前计划写成文库表、芯片表与合并工作簿
// @Tags 排布流程
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse
// @Router /api/plan/generate-files [post]
func (c *PlanController) GenerateFiles(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	sess, err := c.planService.GenerateFiles(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, r, "生成结果文件失败", err)
		return
	}

	fileTypes := make([]string, 0, len(sess.OutputFiles))
	for ft := range sess.OutputFiles {
		fileTypes = append(fileTypes, ft)
	}
	render.JSON(w, r, SuccessResponse("结果文件生成成功", map[string]interface{}{
		"session_id": sess.ID,
		"file_types": fileTypes,
	}))
}

// Download 下载指定类型的结果文件
// @Summary 下载结果文件
// @Description 按类型下载已生成的结果文件（combined/library/chip）
// @Tags 排布流程
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param file_type path string true "文件类型"
// @Param session_id query string true "会话ID"
// @Router /api/plan/download/{file_type} [get]
func (c *PlanController) Download(w http.ResponseWriter, r *http.Request) {
	fileType := chi.URLParam(r, "file_type")
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		render.JSON(w, r, BadRequestResponse("缺少会话ID", nil))
		return
	}

	path, err := c.planService.ResolveDownload(r.Context(), sessionID, fileType)
	if err != nil {
		writeError(w, r, "下载失败", err)
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, filepath.Base(path)))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

// Cleanup 删除会话及其临时文件
// @Summary 清理会话
// @Description 删除会话及其工作目录中的上传与输出文件
// @Tags 排布流程
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse
// @Router /api/plan/cleanup [post]
func (c *PlanController) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	if err := c.planService.Cleanup(r.Context(), req.SessionID); err != nil {
		writeError(w, r, "清理会话失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("会话清理成功", nil))
}

// Allocate 无状态排布：结构化输入一次产出完整计划
// @Summary 无状态排布
// @Description 对结构化输入执行一次完整排布，不创建会话
// @Tags 排布流程
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse{data=models.Plan}
// @Router /api/plan/allocate [post]
func (c *PlanController) Allocate(w http.ResponseWriter, r *http.Request) {
	var input allocation.AllocationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		render.JSON(w, r, BadRequestResponse("请求参数格式错误", err))
		return
	}

	plan, err := c.planService.Allocate(input)
	if err != nil {
		writeError(w, r, "排布失败", err)
		return
	}
	render.JSON(w, r, SuccessResponse("排布成功", plan))
}
