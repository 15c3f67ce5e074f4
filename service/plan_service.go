/*
 * @module service/plan_service
 * @description 排布流程编排服务：串联输入解析、文库/芯片排布、结果表生成与会话管理
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 上传解析 -> 排布 -> 用户编辑芯片表 -> 回填文库表 -> 生成文件 -> 下载/清理
 * @rules 输入表中的配置优先于规则文件；会话保存计划供后续步骤编辑
 * @dependencies 无
 * @refs service/parser, service/allocation, service/generator, service/session
 */

package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cast"

	"runplan-service/service/allocation"
	"runplan-service/service/generator"
	"runplan-service/service/models"
	"runplan-service/service/parser"
	"runplan-service/service/session"
)

// 输出文件类型键
const (
	FileTypeCombined = "combined"
	FileTypeLibrary  = "library"
	FileTypeChip     = "chip"
)

// UploadPaths 一次排布用到的各输入文件路径，可选项留空
type UploadPaths = parser.InputPaths

// PlanOverrides 请求级别的配置覆盖，零值表示使用输入表/默认值
type PlanOverrides = parser.Overrides

// sessionTTL 会话存活时长，SESSION_TTL_MINUTES为0或未设置时用默认值
func sessionTTL() time.Duration {
	if minutes := cast.ToInt(os.Getenv("SESSION_TTL_MINUTES")); minutes > 0 {
		return time.Duration(minutes) * time.Minute
	}
	return session.DefaultTTL
}

// PlanService 排布流程编排服务
type PlanService struct {
	store session.Store
}

// NewPlanService 创建排布流程编排服务
func NewPlanService(store session.Store) *PlanService {
	return &PlanService{store: store}
}

// CreatePlan 第一步：解析上传文件、执行排布并创建会话。
// 产出的芯片表供用户编辑，计划随会话保存。
func (s *PlanService) CreatePlan(ctx context.Context, workDir string, paths UploadPaths, ov PlanOverrides) (*models.PlanSession, error) {
	input, err := parser.BuildAllocationInput(paths, ov)
	if err != nil {
		return nil, err
	}

	plan, err := allocation.Allocate(*input)
	if err != nil {
		return nil, err
	}

	sess := session.NewSession(workDir, sessionTTL())
	sess.Samples = input.Samples
	sess.Controls = input.Controls
	sess.Tables = input.Tables
	sess.Rules = input.Rules
	// 会话保存生效配置而不是请求配置，种子按时间取时也能复现本次排布
	sess.Config = plan.Config
	sess.Plan = plan

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	slog.Info("排布会话创建成功",
		"session_id", sess.ID,
		"samples", len(input.Samples),
		"libraries", len(plan.Libraries),
		"chips", len(plan.Chips),
		"warnings", len(plan.Warnings))
	return sess, nil
}

// ApplyChipEdits 第二步：把用户编辑过的芯片表套用到会话中的计划并回填文库表
func (s *PlanService) ApplyChipEdits(ctx context.Context, id string, edits []models.ChipRecord) (*models.PlanSession, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Plan == nil {
		return nil, fmt.Errorf("会话尚未完成排布: %s", id)
	}

	updated, err := allocation.ApplyChipEdits(sess.Plan, edits)
	if err != nil {
		return nil, err
	}
	sess.Plan = updated

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GenerateFiles 第三步：把计划写成结果工作簿，路径记入会话
func (s *PlanService) GenerateFiles(ctx context.Context, id string) (*models.PlanSession, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Plan == nil {
		return nil, fmt.Errorf("会话尚未完成排布: %s", id)
	}

	gen := generator.NewOutputGenerator()
	templatePath := sess.WorkDir + "/模版.xlsx"
	if _, statErr := os.Stat(templatePath); statErr == nil {
		if g, tplErr := generator.NewOutputGeneratorFromTemplate(templatePath); tplErr == nil {
			gen = g
		} else {
			slog.Warn("模版文件解析失败，使用默认列序", "error", tplErr)
		}
	}

	outputs := map[string]string{
		FileTypeCombined: sess.WorkDir + "/结果表.xlsx",
		FileTypeLibrary:  sess.WorkDir + "/文库表.xlsx",
		FileTypeChip:     sess.WorkDir + "/芯片表.xlsx",
	}
	if err := gen.WriteCombined(sess.Plan, outputs[FileTypeCombined]); err != nil {
		return nil, err
	}
	if err := gen.WriteLibraryTable(sess.Plan.Libraries, outputs[FileTypeLibrary]); err != nil {
		return nil, err
	}
	if err := gen.WriteChipTable(sess.Plan.Chips, outputs[FileTypeChip]); err != nil {
		return nil, err
	}

	sess.OutputFiles = outputs
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ResolveDownload 按文件类型解析会话中已生成的文件路径
func (s *PlanService) ResolveDownload(ctx context.Context, id, fileType string) (string, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	path, ok := sess.OutputFiles[fileType]
	if !ok {
		return "", fmt.Errorf("未生成的文件类型: %s", fileType)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("输出文件不存在: %s", path)
	}
	return path, nil
}

// Cleanup 删除会话及其工作目录
func (s *PlanService) Cleanup(ctx context.Context, id string) error {
	workDir, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if workDir != "" {
		if err := os.RemoveAll(workDir); err != nil {
			slog.Warn("删除会话工作目录失败", "dir", workDir, "error", err)
		}
	}
	return nil
}

// Allocate 无状态排布：直接对结构化输入执行完整排布
func (s *PlanService) Allocate(input allocation.AllocationInput) (*models.Plan, error) {
	return allocation.Allocate(input)
}
