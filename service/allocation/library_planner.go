/*
 * @module service/allocation/library_planner
 * @description 文库排布规划器：按输入顺序为样本分配文库编号与接头号，按病原体展开文库行，并按规则插入NC/PC对照
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 样本请求 -> 编号/接头分配 -> 病原体展开 -> 对照插入 -> 有序文库记录
 * @rules 每个样本/对照恰好占用一个文库编号和一个接头号；编号严格单调且不复用，
 *        接头槽位耗尽时整单失败而不是复用；数据错误整条样本排除并告警，排布继续
 * @dependencies math/rand, regexp, fmt
 * @refs service/allocation/chip_planner.go, service/models
 */

package allocation

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"runplan-service/service/models"
)

var adapterRe = regexp.MustCompile(`^([AB])(\d{2})$`)

// nextAdapter 接头号递进：A01..A48，然后B01..B48，然后回到A01循环
func nextAdapter(adapter string) (string, error) {
	m := adapterRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(adapter)))
	if m == nil {
		return "", fmt.Errorf("非法接头号: %q (期望A01/B01等)", adapter)
	}
	grp := m[1]
	num := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if num < 1 || num > 48 {
		return "", fmt.Errorf("非法接头号: %q (01-48)", adapter)
	}
	switch {
	case num < 48:
		return fmt.Sprintf("%s%02d", grp, num+1), nil
	case grp == "A":
		return "B01", nil
	default:
		return "A01", nil
	}
}

// adapterSlots A01..A48 + B01..B48 共96个互不相同的接头槽位
const adapterSlots = 96

// indexAllocator 接头号分配器，按策略顺序发放接头槽位。
// adapter_ab 策略的槽位总数有限，发满后拒绝继续发放而不是回绕复用。
type indexAllocator struct {
	policy  models.IndexPolicy
	adapter string // adapter_ab 策略的当前接头
	number  int    // numeric 策略的当前序号
	issued  int    // 已发放槽位数
	limit   int    // 槽位上限，0表示不限
}

func newIndexAllocator(rules models.RuleSet) (*indexAllocator, error) {
	a := &indexAllocator{policy: rules.IndexPolicy}
	switch rules.IndexPolicy {
	case models.IndexAdapterAB:
		start := strings.TrimSpace(rules.IndexStart)
		if start == "" {
			start = models.DefaultIndexStart
		}
		if !adapterRe.MatchString(strings.ToUpper(start)) {
			return nil, &ConfigError{Field: "接头起点", Reason: fmt.Sprintf("非法接头号: %q", rules.IndexStart)}
		}
		a.adapter = strings.ToUpper(start)
		a.limit = adapterSlots
	case models.IndexNumeric:
		a.number = 1
	default:
		return nil, &ConfigError{Field: "接头号策略", Reason: fmt.Sprintf("未知策略: %s", rules.IndexPolicy)}
	}
	return a, nil
}

// next 返回当前槽位并前进一格，槽位耗尽时报错
func (a *indexAllocator) next() (string, error) {
	if a.limit > 0 && a.issued >= a.limit {
		return "", fmt.Errorf("接头号槽位已耗尽: 单次排布最多 %d 个文库", a.limit)
	}
	a.issued++
	switch a.policy {
	case models.IndexAdapterAB:
		cur := a.adapter
		adv, err := nextAdapter(cur)
		if err != nil {
			// 起点在构造时已校验，这里不会发生
			adv = models.DefaultIndexStart
		}
		a.adapter = adv
		return cur, nil
	default:
		cur := a.number
		a.number++
		return fmt.Sprintf("%d", cur), nil
	}
}

// LibraryPlanner 文库排布规划器
type LibraryPlanner struct {
	rules    models.RuleSet
	resolver *Resolver
	project  string
	capacity int // per_chip 对照策略需要的芯片容量
	rng      *rand.Rand
}

// NewLibraryPlanner 创建文库排布规划器
func NewLibraryPlanner(rules models.RuleSet, resolver *Resolver, project string, capacity int, rng *rand.Rand) *LibraryPlanner {
	return &LibraryPlanner{
		rules:    rules,
		resolver: resolver,
		project:  project,
		capacity: capacity,
		rng:      rng,
	}
}

// formatLibraryNo 文库编号：项目前缀 + 单调递增的4位序号
func (p *LibraryPlanner) formatLibraryNo(seq int) string {
	project := strings.TrimSpace(p.project)
	if project == "" {
		project = "LIB"
	}
	return fmt.Sprintf("%s-%04d", project, seq)
}

// controlSetRows 一组对照占用的总行数（无指标的对照按1行计）
func controlSetRows(controls []models.ControlRequest) int {
	rows := 0
	for _, c := range controls {
		n := len(c.Metrics)
		if n == 0 {
			n = 1
		}
		rows += n
	}
	return rows
}

// planState 排布过程中的显式累加器状态
type planState struct {
	records  []models.LibraryRecord
	warnings []models.Warning
	libSeq   int
	index    *indexAllocator
}

// PlanLibraries 生成有序的文库记录序列
// 顺序即输入顺序，下游的芯片排布与表格渲染都依赖这一顺序
func (p *LibraryPlanner) PlanLibraries(samples []models.SampleRequest, controls []models.ControlRequest) ([]models.LibraryRecord, []models.Warning, error) {
	if err := p.rules.Validate(); err != nil {
		return nil, nil, &ConfigError{Field: "规则集", Reason: err.Error()}
	}
	alloc, err := newIndexAllocator(p.rules)
	if err != nil {
		return nil, nil, err
	}

	st := &planState{index: alloc}

	// 对照是原子装箱单元，任何一个装不进一张空芯片都是配置问题
	if p.capacity > 0 {
		for _, ctrl := range controls {
			if rows := controlSetRows([]models.ControlRequest{ctrl}); rows > p.capacity {
				return nil, nil, &ConfigError{
					Field:  "芯片容量",
					Reason: fmt.Sprintf("芯片容量 %d 容不下对照 %q（%d 行）", p.capacity, ctrl.Name, rows),
				}
			}
		}
	}

	reserved := 0
	effective := 0
	if p.rules.ControlPolicy == models.ControlPerChip {
		reserved = controlSetRows(controls)
		effective = p.capacity - reserved
		if p.capacity <= 0 {
			return nil, nil, &ConfigError{Field: "芯片容量", Reason: fmt.Sprintf("per_chip对照策略要求正的芯片容量, 实际为 %d", p.capacity)}
		}
		if effective <= 0 {
			return nil, nil, &ConfigError{Field: "芯片容量", Reason: fmt.Sprintf("芯片容量 %d 容不下一组对照（%d 行）", p.capacity, reserved)}
		}
	}

	seen := make(map[string]bool, len(samples))
	accepted := 0 // 已接受的样本数，every_n 的触发计数
	fill := 0     // per_chip 策略下当前芯片的模拟填充数

	for _, sample := range samples {
		rows, warns, derr := p.expandSample(sample, seen)
		st.warnings = append(st.warnings, warns...)
		if derr != nil {
			if p.rules.FatalLookupMiss && derr.Field == "物种名称" {
				return nil, nil, derr
			}
			st.warnings = append(st.warnings, models.Warning{Sample: derr.Sample, Field: derr.Field, Reason: derr.Reason})
			continue
		}

		// 样本不可拆分，行数超过整张芯片容量的样本排除并告警
		if p.capacity > 0 && len(rows) > p.capacity {
			st.warnings = append(st.warnings, models.Warning{
				Sample: sample.Name,
				Field:  "病原体",
				Reason: fmt.Sprintf("样本行数 %d 超出芯片容量 %d", len(rows), p.capacity),
			})
			continue
		}

		if p.rules.ControlPolicy == models.ControlPerChip {
			if len(rows) > effective {
				st.warnings = append(st.warnings, models.Warning{
					Sample: sample.Name,
					Field:  "病原体",
					Reason: fmt.Sprintf("样本行数 %d 超出芯片可用容量 %d（容量 %d 减对照 %d 行）", len(rows), effective, p.capacity, reserved),
				})
				continue
			}
			if fill+len(rows) > effective {
				// 当前芯片即将关闭，先在尾部补齐本芯片的对照组
				if err := p.emitControls(st, controls); err != nil {
					return nil, nil, err
				}
				fill = 0
			}
			fill += len(rows)
		}

		if err := p.emitRows(st, rows); err != nil {
			return nil, nil, err
		}
		accepted++

		if p.rules.ControlPolicy == models.ControlEveryN && accepted%p.rules.ControlInterval == 0 {
			if err := p.emitControls(st, controls); err != nil {
				return nil, nil, err
			}
		}
	}

	switch p.rules.ControlPolicy {
	case models.ControlPerChip, models.ControlAtEnd:
		// per_chip：最后一张（可能未满的）芯片同样要有对照组
		// at_end：触发与样本数量无关，零样本也插入
		if err := p.emitControls(st, controls); err != nil {
			return nil, nil, err
		}
	}

	return st.records, st.warnings, nil
}

// expandSample 将一个样本请求展开为若干行（未分配编号），校验字段数量与范围格式。
// 校验失败则整条样本排除，保证被接受的样本行数恒等于其病原体条目数。
// 参考表未命中不排除样本：原始名称作为展示值保留，降级为告警返回。
func (p *LibraryPlanner) expandSample(sample models.SampleRequest, seen map[string]bool) ([]models.LibraryRecord, []models.Warning, *DataError) {
	name := strings.TrimSpace(sample.Name)
	if p.rules.RequireUnique {
		if seen[name] {
			return nil, nil, &DataError{Sample: name, Field: "样本名称", Reason: "样本名称重复"}
		}
		seen[name] = true
	}

	n := len(sample.Pathogens)
	if n == 0 {
		return nil, nil, &DataError{Sample: name, Field: "病原体", Reason: "病原体条目为空"}
	}

	rpmRanges, derr := alignRanges(name, "rpm范围", sample.RPMRanges, n)
	if derr != nil {
		return nil, nil, derr
	}
	spikeRanges, derr := alignRanges(name, "spike rpm范围", sample.SpikeRPMRanges, n)
	if derr != nil {
		return nil, nil, derr
	}

	rows := make([]models.LibraryRecord, 0, n)
	var warns []models.Warning
	for i, pathogen := range sample.Pathogens {
		species := strings.TrimSpace(pathogen)
		row := models.LibraryRecord{
			SampleName: name,
			Species:    species,
		}

		rpm, derr := p.drawMetric(name, "rpm范围", rpmRanges[i])
		if derr != nil {
			return nil, warns, derr
		}
		spike, derr := p.drawMetric(name, "spike rpm范围", spikeRanges[i])
		if derr != nil {
			return nil, warns, derr
		}
		row.RPM = rpm
		row.SpikeRPM = spike

		if info, ok := p.resolver.ResolveSpecies(species); ok {
			row.Category = info.Category
			row.TaxID = info.TaxID
			row.LatinName = info.LatinName
		} else if species != "" && species != "/" {
			if p.rules.FatalLookupMiss {
				return nil, warns, &DataError{Sample: name, Field: "物种名称", Reason: fmt.Sprintf("物种列表中未找到: %q", species)}
			}
			warns = append(warns, models.Warning{
				Sample: name,
				Field:  "物种名称",
				Reason: fmt.Sprintf("物种列表中未找到: %q", species),
			})
		}
		rows = append(rows, row)
	}

	return rows, warns, nil
}

// alignRanges 将范围列表对齐到病原体条目数：空列表全空、单值广播、等长逐条，其余为数量不一致
func alignRanges(sample, field string, ranges []string, n int) ([]string, *DataError) {
	switch len(ranges) {
	case 0:
		return make([]string, n), nil
	case 1:
		out := make([]string, n)
		for i := range out {
			out[i] = ranges[0]
		}
		return out, nil
	case n:
		return ranges, nil
	default:
		return nil, &DataError{
			Sample: sample,
			Field:  field,
			Reason: fmt.Sprintf("条目数量不一致: 病原体 %d 个, %s %d 个", n, field, len(ranges)),
		}
	}
}

// drawMetric 解析范围并取随机值，空范围返回nil
func (p *LibraryPlanner) drawMetric(sample, field, rangeStr string) (*float64, *DataError) {
	r, ok, err := parseMetricRange(rangeStr)
	if err != nil {
		return nil, &DataError{Sample: sample, Field: field, Reason: err.Error()}
	}
	if !ok {
		return nil, nil
	}
	v := drawInRange(r, p.rng)
	return &v, nil
}

// emitRows 为一个样本/对照的全部行分配同一个文库编号与接头号后写入结果。
// 接头槽位耗尽是整单失败，绝不复用已发放的槽位。
func (p *LibraryPlanner) emitRows(st *planState, rows []models.LibraryRecord) error {
	index, err := st.index.next()
	if err != nil {
		sample := ""
		if len(rows) > 0 {
			sample = rows[0].SampleName
		}
		return &DataError{Sample: sample, Field: "接头号", Reason: err.Error()}
	}
	st.libSeq++
	libraryNo := p.formatLibraryNo(st.libSeq)
	for _, row := range rows {
		row.LibraryNo = libraryNo
		row.Index = index
		st.records = append(st.records, row)
	}
	return nil
}

// emitControls 按声明顺序插入一组对照，每个对照占用自己的编号与接头号
func (p *LibraryPlanner) emitControls(st *planState, controls []models.ControlRequest) error {
	for _, ctrl := range controls {
		metrics := ctrl.Metrics
		if len(metrics) == 0 {
			// NC缺省为一条物种名称 / 的记录
			metrics = []models.ControlMetric{{Species: "/"}}
		}

		rows := make([]models.LibraryRecord, 0, len(metrics))
		for _, m := range metrics {
			species := strings.TrimSpace(m.Species)
			if species == "" {
				species = "/"
			}
			row := models.LibraryRecord{
				SampleName: ctrl.Name,
				Species:    species,
				IsControl:  true,
			}
			if rpm, derr := p.drawMetric(ctrl.Name, "rpm范围", m.RPMRange); derr == nil {
				row.RPM = rpm
			} else {
				st.warnings = append(st.warnings, models.Warning{Sample: derr.Sample, Field: derr.Field, Reason: derr.Reason})
			}
			if spike, derr := p.drawMetric(ctrl.Name, "spike rpm范围", ctrl.SpikeRPMRange); derr == nil {
				row.SpikeRPM = spike
			} else {
				st.warnings = append(st.warnings, models.Warning{Sample: derr.Sample, Field: derr.Field, Reason: derr.Reason})
			}
			if info, ok := p.resolver.ResolveSpecies(species); ok {
				row.Category = info.Category
				row.TaxID = info.TaxID
				row.LatinName = info.LatinName
			}
			rows = append(rows, row)
		}
		if err := p.emitRows(st, rows); err != nil {
			return err
		}
	}
	return nil
}
