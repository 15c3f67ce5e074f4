/*
 * @module service/allocation/chip_planner
 * @description 芯片排布规划器：将有序文库序列按容量贪心装入芯片，轮换测序仪并递增日期，回填芯片元数据
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 文库记录 -> 原子单元分组 -> 贪心装箱 -> 芯片记录 + 回填后的文库记录
 * @rules 严格按输入顺序装箱不重排；同一文库编号的行是原子单元，绝不跨芯片拆分，
 *        行数超过容量的单元中止排布；每关闭一张芯片测序仪轮换前进一位并按规则递增日期
 * @dependencies time, fmt, regexp
 * @refs service/allocation/library_planner.go, service/models
 */

package allocation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"runplan-service/service/models"
)

var nonDigitRe = regexp.MustCompile(`\D`)

// ParseYYMMDD 解析 YYMMDD 六位日期（世纪固定为20）
func ParseYYMMDD(s string) (time.Time, error) {
	digits := nonDigitRe.ReplaceAllString(strings.TrimSpace(s), "")
	if len(digits) != 6 {
		return time.Time{}, fmt.Errorf("非法日期(期望YYMMDD 6位数字): %q", s)
	}
	t, err := time.Parse("060102", digits)
	if err != nil {
		return time.Time{}, fmt.Errorf("非法日期: %q", s)
	}
	return t, nil
}

// FormatYYMMDD 日期转 YYMMDD
func FormatYYMMDD(t time.Time) string {
	return t.Format("060102")
}

// FormatDotDate 日期转点分格式 2026.01.13（上机/分析时间列）
func FormatDotDate(t time.Time) string {
	return t.Format("2006.01.02")
}

// BuildChipSN 芯片SN：测序日期_测序仪SN_4位Run数_AXXXXXXXXX
func BuildChipSN(yymmdd, sequencerSN string, run int) string {
	return fmt.Sprintf("%s_%s_%04d_AXXXXXXXXX", yymmdd, sequencerSN, run)
}

// ChipPlanner 芯片排布规划器
type ChipPlanner struct {
	rules    models.RuleSet
	resolver *Resolver
}

// NewChipPlanner 创建芯片排布规划器
func NewChipPlanner(rules models.RuleSet, resolver *Resolver) *ChipPlanner {
	return &ChipPlanner{rules: rules, resolver: resolver}
}

// libraryUnit 原子装箱单元：同一文库编号的连续行
type libraryUnit struct {
	start int // 在记录序列中的起始下标
	count int
}

// groupUnits 按文库编号把连续行分组为原子单元
func groupUnits(records []models.LibraryRecord) []libraryUnit {
	var units []libraryUnit
	for i := 0; i < len(records); {
		j := i + 1
		for j < len(records) && records[j].LibraryNo == records[i].LibraryNo {
			j++
		}
		units = append(units, libraryUnit{start: i, count: j - i})
		i = j
	}
	return units
}

// PlanChips 将文库序列装入容量受限的芯片并回填运行元数据。
// 返回芯片记录、回填后的文库记录副本与告警；输入切片不被修改。
func (p *ChipPlanner) PlanChips(records []models.LibraryRecord, cfg models.AllocationConfig) ([]models.ChipRecord, []models.LibraryRecord, []models.Warning, error) {
	capacity := cfg.ChipCapacity
	if capacity <= 0 {
		return nil, nil, nil, &ConfigError{Field: "芯片容量", Reason: fmt.Sprintf("芯片容量必须为正, 实际为 %d", capacity)}
	}
	if len(cfg.SequencerRotation) == 0 {
		return nil, nil, nil, &ConfigError{Field: "测序仪轮换", Reason: "测序仪轮换列表为空"}
	}
	startDate, err := ParseYYMMDD(cfg.StartDate)
	if err != nil {
		return nil, nil, nil, &ConfigError{Field: "实验启动时间", Reason: err.Error()}
	}

	stamped := make([]models.LibraryRecord, len(records))
	copy(stamped, records)

	var warnings []models.Warning
	warned := make(map[string]bool)

	// 轮换表中的名称解析为 SN/型号，未命中降级为原始名称
	type sequencerSlot struct {
		sn    string
		model string
	}
	slots := make([]sequencerSlot, 0, len(cfg.SequencerRotation))
	runCounters := make(map[string]int)
	for _, name := range cfg.SequencerRotation {
		name = strings.TrimSpace(name)
		if info, ok := p.resolver.ResolveSequencer(name); ok {
			sn := info.SerialNumber
			if sn == "" {
				sn = name
			}
			slots = append(slots, sequencerSlot{sn: sn, model: info.Model})
			if _, seen := runCounters[sn]; !seen {
				runCounters[sn] = info.RunStart
			}
		} else {
			if !warned[name] {
				warnings = append(warnings, models.Warning{
					Sample: "",
					Field:  "测序仪",
					Reason: fmt.Sprintf("测序仪对应关系中未找到: %q", name),
				})
				warned[name] = true
			}
			slots = append(slots, sequencerSlot{sn: name})
		}
	}

	units := groupUnits(stamped)

	var chips []models.ChipRecord
	fill := 0
	seqIdx := 0
	date := startDate
	chipStart := 0 // 当前芯片拥有的记录段起点

	closeChip := func(end int) {
		slot := slots[seqIdx]
		run := runCounters[slot.sn]
		yymmdd := FormatYYMMDD(date)
		chipSN := BuildChipSN(yymmdd, slot.sn, run)

		chips = append(chips, models.ChipRecord{
			Project:        cfg.Project,
			RunDate:        yymmdd,
			SequencerSN:    slot.sn,
			RunCount:       run,
			ChipSN:         chipSN,
			SequencerModel: slot.model,
		})
		runCounters[slot.sn] = run + 1

		dot := FormatDotDate(date)
		for i := chipStart; i < end; i++ {
			stamped[i].ChipSN = chipSN
			stamped[i].ChipDataVolume = p.rules.ChipDataVolume
			stamped[i].RunDate = dot
			stamped[i].AnalysisDate = dot
		}
		chipStart = end
	}

	for _, u := range units {
		// 样本绝不跨芯片拆分：放不下就提前关闭当前芯片，整个样本进入新芯片。
		// 行数超过整张芯片容量的单元在文库排布阶段就该被排除，这里是兜底。
		if u.count > capacity {
			return nil, nil, nil, &InvariantError{
				Reason: fmt.Sprintf("文库 %s 的行数 %d 超过芯片容量 %d", stamped[u.start].LibraryNo, u.count, capacity),
			}
		}
		if fill > 0 && fill+u.count > capacity {
			closeChip(u.start)
			seqIdx = (seqIdx + 1) % len(slots)
			date = date.AddDate(0, 0, p.rules.DateStepDays)
			fill = 0
		}
		fill += u.count
	}
	if fill > 0 {
		closeChip(len(stamped))
	}

	return chips, stamped, warnings, nil
}
