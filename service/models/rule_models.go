/*
 * @module service/models/rule_models
 * @description 排布规则集定义，将原本松散的规则配置建模为带枚举策略的不可变配置结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 规则加载 -> 校验 -> 排布引擎只读使用
 * @rules 策略组合用类型约束而非字符串约定，单次排布期间规则集只读
 * @dependencies fmt
 * @refs service/allocation
 */

package models

import "fmt"

// ControlPolicy 对照插入策略
type ControlPolicy string

const (
	// ControlEveryN 每N个有效样本后插入一组对照，末尾不足N个不插入
	ControlEveryN ControlPolicy = "every_n"
	// ControlPerChip 每张芯片尾部预留并插入一组对照
	ControlPerChip ControlPolicy = "per_chip"
	// ControlAtEnd 全部样本之后插入一组对照，与样本数量无关（零样本也插入）
	ControlAtEnd ControlPolicy = "at_end"
)

// IndexPolicy 接头号分配策略
type IndexPolicy string

const (
	// IndexAdapterAB A01..A48 -> B01..B48 -> A01 循环
	IndexAdapterAB IndexPolicy = "adapter_ab"
	// IndexNumeric 1, 2, 3 ... 纯数字递增
	IndexNumeric IndexPolicy = "numeric"
)

// 默认值
const (
	DefaultChipCapacity   = 96
	DefaultIndexStart     = "A01"
	DefaultChipDataVolume = "420M"
	DefaultDateStepDays   = 1
)

// RuleSet 排布规则集，单次排布期间只读
type RuleSet struct {
	ControlPolicy   ControlPolicy `json:"control_policy"`    // 对照插入策略
	ControlInterval int           `json:"control_interval"`  // every_n 策略的N
	IndexPolicy     IndexPolicy   `json:"index_policy"`      // 接头号策略
	IndexStart      string        `json:"index_start"`       // 接头起点，如 A01
	RequireUnique   bool          `json:"require_unique"`    // 样本名是否要求唯一
	DateStepDays    int           `json:"date_step_days"`    // 每张芯片的日期递增天数
	ChipDataVolume  string        `json:"chip_data_volume"`  // 芯片数据量标注
	FatalLookupMiss bool          `json:"fatal_lookup_miss"` // 参考表未命中是否整单失败
}

// DefaultRuleSet 返回默认规则集
func DefaultRuleSet() RuleSet {
	return RuleSet{
		ControlPolicy:   ControlPerChip,
		ControlInterval: 0,
		IndexPolicy:     IndexAdapterAB,
		IndexStart:      DefaultIndexStart,
		RequireUnique:   false,
		DateStepDays:    DefaultDateStepDays,
		ChipDataVolume:  DefaultChipDataVolume,
	}
}

// Validate 校验规则集的策略组合
func (r RuleSet) Validate() error {
	switch r.ControlPolicy {
	case ControlEveryN:
		if r.ControlInterval <= 0 {
			return fmt.Errorf("every_n策略要求正的对照插入间隔, 实际为 %d", r.ControlInterval)
		}
	case ControlPerChip, ControlAtEnd:
		// 无需间隔
	default:
		return fmt.Errorf("未知的对照插入策略: %s", r.ControlPolicy)
	}

	switch r.IndexPolicy {
	case IndexAdapterAB, IndexNumeric:
	default:
		return fmt.Errorf("未知的接头号策略: %s", r.IndexPolicy)
	}

	if r.DateStepDays < 0 {
		return fmt.Errorf("日期递增天数不能为负: %d", r.DateStepDays)
	}
	return nil
}
