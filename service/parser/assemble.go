/*
 * @module service/parser/assemble
 * @description 输入组装：把各输入文件解析结果组装成一次完整排布的引擎输入
 * @architecture 分层架构 - 数据接入层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 解析输入表/参考文件/规则文件 -> 合并覆盖项 -> 引擎输入
 * @rules 输入表中的接头起点优先于规则文件；请求级覆盖项优先于输入表
 * @dependencies 无
 * @refs service/allocation, service/plan_service.go, cmd/runplan
 */

package parser

import (
	"runplan-service/service/allocation"
	"runplan-service/service/models"
)

// InputPaths 一次排布用到的各输入文件路径，可选项留空
type InputPaths struct {
	Input     string // 输入表（必选）
	Rules     string // 规则文件
	NC        string // NC列表
	PC        string // PC列表
	Species   string // 物种列表
	Sequencer string // 测序仪对应关系
	Template  string // 结果表模版
}

// Overrides 请求级别的配置覆盖，零值表示使用输入表/默认值
type Overrides struct {
	Project      string
	ChipCapacity int
	StartDate    string
	Seed         int64
}

// BuildAllocationInput 解析全部输入文件并组装引擎输入
func BuildAllocationInput(paths InputPaths, ov Overrides) (*allocation.AllocationInput, error) {
	parsed, err := NewInputParser(paths.Input).Parse()
	if err != nil {
		return nil, err
	}

	refParser := &ReferenceParser{
		NCFile:        paths.NC,
		PCFile:        paths.PC,
		SpeciesFile:   paths.Species,
		SequencerFile: paths.Sequencer,
	}
	ncRows, err := refParser.ParseNC()
	if err != nil {
		return nil, err
	}
	pcRows, err := refParser.ParsePC()
	if err != nil {
		return nil, err
	}
	species, err := refParser.ParseSpecies()
	if err != nil {
		return nil, err
	}
	sequencers, err := refParser.ParseSequencers()
	if err != nil {
		return nil, err
	}

	rules, err := NewRulesParser(paths.Rules).Parse()
	if err != nil {
		return nil, err
	}
	// 输入表中的接头起点优先于规则文件
	if parsed.Meta.AdapterStart != "" {
		rules.IndexStart = parsed.Meta.AdapterStart
	}

	config := models.AllocationConfig{
		Project:           parsed.Meta.Project(),
		ChipCapacity:      ov.ChipCapacity,
		StartDate:         parsed.Meta.StartDate,
		SequencerRotation: parsed.Meta.RotationSNs(),
		Seed:              ov.Seed,
	}
	if ov.Project != "" {
		config.Project = ov.Project
	}
	if ov.StartDate != "" {
		config.StartDate = ov.StartDate
	}

	return &allocation.AllocationInput{
		Samples:  parsed.Samples,
		Controls: BuildControls(ncRows, pcRows, parsed.Meta),
		Tables:   BuildReferenceTables(species, sequencers, parsed.Meta),
		Rules:    rules,
		Config:   config,
	}, nil
}
