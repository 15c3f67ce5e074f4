/*
 * @module service/allocation/engine
 * @description 排布引擎入口：文库排布与芯片排布的组合，纯函数语义，种子固定时输出可复现
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 输入校验 -> 文库排布 -> 芯片排布 -> 完整计划或单一致命错误
 * @rules 引擎无I/O无跨次状态，要么产出完整的两张表加非致命告警，要么产出单一结构化错误，绝不输出部分结果
 * @dependencies math/rand, time
 * @refs api/controllers/plan_controller.go, cmd/runplan
 */

package allocation

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"runplan-service/service/models"
)

// AllocationInput 一次排布的全部输入
type AllocationInput struct {
	Samples  []models.SampleRequest  `json:"samples"`
	Controls []models.ControlRequest `json:"controls"`
	Tables   models.ReferenceTables  `json:"tables"`
	Rules    models.RuleSet          `json:"rules"`
	Config   models.AllocationConfig `json:"config"`
}

// normalizeConfig 补全配置默认值：容量96、启动日期今天、种子按时间取
func normalizeConfig(cfg models.AllocationConfig) (models.AllocationConfig, error) {
	if cfg.ChipCapacity == 0 {
		cfg.ChipCapacity = models.DefaultChipCapacity
	}
	if cfg.ChipCapacity < 0 {
		return cfg, &ConfigError{Field: "芯片容量", Reason: fmt.Sprintf("芯片容量必须为正, 实际为 %d", cfg.ChipCapacity)}
	}
	if strings.TrimSpace(cfg.StartDate) == "" {
		cfg.StartDate = FormatYYMMDD(time.Now())
	}
	if _, err := ParseYYMMDD(cfg.StartDate); err != nil {
		return cfg, &ConfigError{Field: "实验启动时间", Reason: err.Error()}
	}
	if len(cfg.SequencerRotation) == 0 {
		return cfg, &ConfigError{Field: "测序仪轮换", Reason: "测序仪轮换列表为空"}
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, nil
}

// Allocate 完整排布：文库排布 -> 芯片排布。
// 配置错误在产出任何记录之前整单失败；数据错误降级为告警。
// 计划携带补全默认值后的生效配置，重放同一配置可得到相同输出。
func Allocate(input AllocationInput) (*models.Plan, error) {
	if err := input.Rules.Validate(); err != nil {
		return nil, &ConfigError{Field: "规则集", Reason: err.Error()}
	}
	cfg, err := normalizeConfig(input.Config)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	resolver := NewResolver(input.Tables)

	libPlanner := NewLibraryPlanner(input.Rules, resolver, cfg.Project, cfg.ChipCapacity, rng)
	records, libWarnings, err := libPlanner.PlanLibraries(input.Samples, input.Controls)
	if err != nil {
		return nil, err
	}

	chipPlanner := NewChipPlanner(input.Rules, resolver)
	chips, stamped, chipWarnings, err := chipPlanner.PlanChips(records, cfg)
	if err != nil {
		return nil, err
	}

	return &models.Plan{
		Libraries: stamped,
		Chips:     chips,
		Warnings:  append(libWarnings, chipWarnings...),
		Config:    cfg,
	}, nil
}

// ApplyChipEdits 将用户编辑后的芯片行覆盖到计划上并回填文库记录。
// 编辑只允许逐行修改元数据，不允许增删芯片；芯片SN留空时按日期/SN/Run重新生成。
func ApplyChipEdits(plan *models.Plan, edits []models.ChipRecord) (*models.Plan, error) {
	if len(edits) != len(plan.Chips) {
		return nil, &ConfigError{
			Field:  "芯片表",
			Reason: fmt.Sprintf("芯片行数不匹配: 计划 %d 行, 提交 %d 行", len(plan.Chips), len(edits)),
		}
	}

	// 原芯片边界：按芯片SN变化切分文库序列
	type segment struct{ start, end int }
	var segments []segment
	libs := plan.Libraries
	for i := 0; i < len(libs); {
		j := i + 1
		for j < len(libs) && libs[j].ChipSN == libs[i].ChipSN {
			j++
		}
		segments = append(segments, segment{start: i, end: j})
		i = j
	}
	if len(segments) != len(plan.Chips) {
		return nil, &InvariantError{
			Reason: fmt.Sprintf("文库记录芯片段数 %d 与芯片记录数 %d 不一致", len(segments), len(plan.Chips)),
		}
	}

	newChips := make([]models.ChipRecord, len(edits))
	newLibs := make([]models.LibraryRecord, len(libs))
	copy(newLibs, libs)

	for i, edit := range edits {
		date, err := ParseYYMMDD(edit.RunDate)
		if err != nil {
			return nil, &ConfigError{Field: "测序日期", Reason: err.Error()}
		}
		if strings.TrimSpace(edit.SequencerSN) == "" {
			return nil, &ConfigError{Field: "测序仪SN", Reason: fmt.Sprintf("第 %d 行测序仪SN为空", i+1)}
		}
		if strings.TrimSpace(edit.ChipSN) == "" {
			edit.ChipSN = BuildChipSN(FormatYYMMDD(date), strings.TrimSpace(edit.SequencerSN), edit.RunCount)
		}
		newChips[i] = edit

		dot := FormatDotDate(date)
		for k := segments[i].start; k < segments[i].end; k++ {
			newLibs[k].ChipSN = edit.ChipSN
			newLibs[k].RunDate = dot
			newLibs[k].AnalysisDate = dot
		}
	}

	return &models.Plan{
		Libraries: newLibs,
		Chips:     newChips,
		Warnings:  plan.Warnings,
		Config:    plan.Config,
	}, nil
}
