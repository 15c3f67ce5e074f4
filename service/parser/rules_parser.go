/*
 * @module service/parser/rules_parser
 * @description 规则文件解析器：把键值式规则工作簿映射到类型化规则集，缺失文件回落默认规则
 * @architecture 分层架构 - 数据接入层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 打开工作簿 -> 键值行扫描 -> 覆盖默认规则集
 * @rules 未知键忽略；非法取值由规则集校验统一报配置错误
 * @dependencies github.com/xuri/excelize/v2, github.com/spf13/cast
 * @refs service/models
 */

package parser

import (
	"strings"

	"github.com/spf13/cast"

	"runplan-service/service/models"
)

// RulesParser 规则文件解析器
type RulesParser struct {
	path string
}

// NewRulesParser 创建规则文件解析器
func NewRulesParser(path string) *RulesParser {
	return &RulesParser{path: path}
}

// Parse 解析规则文件。文件缺失或没有可识别键时返回默认规则集。
func (p *RulesParser) Parse() (models.RuleSet, error) {
	rules := models.DefaultRuleSet()

	f, err := openOptional(p.path)
	if err != nil {
		return rules, err
	}
	if f == nil {
		return rules, nil
	}
	defer f.Close()

	sheet := pickSheet(f, "规则")
	if sheet == "" {
		return rules, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return rules, err
	}

	for _, row := range rows {
		key := cell(row, 0)
		val := cell(row, 1)
		if key == "" || val == "" {
			continue
		}
		applyRule(&rules, key, val)
	}
	return rules, nil
}

// applyRule 按键名覆盖规则项，未知键忽略
func applyRule(rules *models.RuleSet, key, val string) {
	switch key {
	case "对照策略", "control_policy":
		rules.ControlPolicy = models.ControlPolicy(normalizePolicy(val))
	case "对照间隔", "control_interval":
		rules.ControlInterval = cast.ToInt(val)
	case "接头策略", "index_policy":
		rules.IndexPolicy = models.IndexPolicy(normalizePolicy(val))
	case "接头起点", "index_start":
		rules.IndexStart = strings.ToUpper(val)
	case "样本名唯一", "require_unique":
		rules.RequireUnique = cast.ToBool(val)
	case "日期步长", "date_step_days":
		if n := cast.ToInt(val); n > 0 {
			rules.DateStepDays = n
		}
	case "芯片数据量", "chip_data_volume":
		rules.ChipDataVolume = val
	case "物种缺失即失败", "fatal_lookup_miss":
		rules.FatalLookupMiss = cast.ToBool(val)
	}
}

// normalizePolicy 策略取值统一为小写下划线形式
func normalizePolicy(val string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(val), "-", "_"))
}
