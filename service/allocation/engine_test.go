/*
 * @module service/allocation/engine_test
 * @description 排布引擎组合测试：完整排布、种子可复现性、芯片编辑覆盖与整单配置错误
 * @architecture 测试层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 构造完整输入 -> Allocate -> 断言两张表与告警
 * @rules 相同输入与种子必须产生完全一致的输出；配置错误不产生任何记录
 * @dependencies testing, stretchr/testify
 */

package allocation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runplan-service/service/models"
)

func engineInput(sampleCount int) AllocationInput {
	var samples []models.SampleRequest
	for i := 1; i <= sampleCount; i++ {
		samples = append(samples, models.SampleRequest{
			Name:           fmt.Sprintf("F-0020-%02d", i),
			Pathogens:      []string{"肺炎支原体", "CMV"},
			RPMRanges:      []string{"1~10", "1~10"},
			SpikeRPMRanges: []string{"7000~10000"},
		})
	}
	rules := models.DefaultRuleSet()
	rules.ControlPolicy = models.ControlAtEnd
	return AllocationInput{
		Samples:  samples,
		Controls: []models.ControlRequest{ncRequest(), pcRequest()},
		Tables:   testTables(),
		Rules:    rules,
		Config: models.AllocationConfig{
			Project:           "F0020",
			ChipCapacity:      8,
			StartDate:         "260113",
			SequencerRotation: []string{"Seq1", "Seq2"},
			Seed:              42,
		},
	}
}

// TestAllocate 完整排布：文库表与芯片表一次产出，顺序与归属一致
func TestAllocate(t *testing.T) {
	plan, err := Allocate(engineInput(3))
	require.NoError(t, err)

	// 3样本 × 2行 + NC 1行 + PC 2行 = 9行
	require.Len(t, plan.Libraries, 9)
	// 容量8：前8行进芯片1，剩余进芯片2 —— 但PC(2行)不可拆分：
	// 样本6行 + NC 1行 = 7，PC放不下，芯片1关闭于7行
	require.Len(t, plan.Chips, 2)

	counts := make(map[string]int)
	for _, rec := range plan.Libraries {
		require.NotEmpty(t, rec.ChipSN, "排布完成后每行都有芯片归属")
		counts[rec.ChipSN]++
	}
	assert.Equal(t, 7, counts[plan.Chips[0].ChipSN])
	assert.Equal(t, 2, counts[plan.Chips[1].ChipSN])

	assert.Equal(t, "F0020", plan.Chips[0].Project)
	assert.Empty(t, plan.Warnings)
}

// TestAllocateIdempotent 相同输入与种子下重复排布输出完全一致
func TestAllocateIdempotent(t *testing.T) {
	a, err := Allocate(engineInput(5))
	require.NoError(t, err)
	b, err := Allocate(engineInput(5))
	require.NoError(t, err)

	assert.Equal(t, a.Libraries, b.Libraries)
	assert.Equal(t, a.Chips, b.Chips)
	assert.Equal(t, a.Warnings, b.Warnings)
}

// TestAllocateSeedVariation 不同种子产生不同的随机指标（但结构一致）
func TestAllocateSeedVariation(t *testing.T) {
	in1 := engineInput(5)
	in2 := engineInput(5)
	in2.Config.Seed = 43

	a, err := Allocate(in1)
	require.NoError(t, err)
	b, err := Allocate(in2)
	require.NoError(t, err)

	require.Len(t, b.Libraries, len(a.Libraries))
	different := false
	for i := range a.Libraries {
		assert.Equal(t, a.Libraries[i].LibraryNo, b.Libraries[i].LibraryNo)
		if a.Libraries[i].RPM != nil && b.Libraries[i].RPM != nil && *a.Libraries[i].RPM != *b.Libraries[i].RPM {
			different = true
		}
	}
	assert.True(t, different, "不同种子应产生不同的随机指标")
}

// TestAllocateDefaults 容量与启动日期缺省时补默认值
func TestAllocateDefaults(t *testing.T) {
	in := engineInput(1)
	in.Config.ChipCapacity = 0
	in.Config.StartDate = ""

	plan, err := Allocate(in)
	require.NoError(t, err)
	require.Len(t, plan.Chips, 1)
	assert.Len(t, plan.Chips[0].RunDate, 6)

	// 生效配置回填到计划
	assert.Equal(t, models.DefaultChipCapacity, plan.Config.ChipCapacity)
	assert.Len(t, plan.Config.StartDate, 6)
}

// TestAllocateSeedSurfaced 种子未指定时按时间取值并回填到计划配置，重放同一配置得到相同输出
func TestAllocateSeedSurfaced(t *testing.T) {
	in := engineInput(3)
	in.Config.Seed = 0

	a, err := Allocate(in)
	require.NoError(t, err)
	require.NotZero(t, a.Config.Seed, "生效种子必须回填")

	in.Config.Seed = a.Config.Seed
	b, err := Allocate(in)
	require.NoError(t, err)
	assert.Equal(t, a.Libraries, b.Libraries)
	assert.Equal(t, a.Chips, b.Chips)
	assert.Equal(t, a.Config, b.Config)
}

// TestAllocateOversizedSample 超容样本在文库阶段排除并告警，所有芯片行数不超过容量
func TestAllocateOversizedSample(t *testing.T) {
	in := engineInput(2)
	in.Config.ChipCapacity = 4
	in.Samples[0].Pathogens = []string{"CMV", "CMV", "CMV", "CMV", "CMV"}
	in.Samples[0].RPMRanges = []string{"1~10"}
	in.Samples[0].SpikeRPMRanges = []string{"7000~10000"}

	plan, err := Allocate(in)
	require.NoError(t, err)

	// 剩余1样本2行 + NC 1行 + PC 2行
	assert.Len(t, plan.Libraries, 5)
	counts := make(map[string]int)
	for _, rec := range plan.Libraries {
		counts[rec.ChipSN]++
	}
	for _, chip := range plan.Chips {
		assert.LessOrEqual(t, counts[chip.ChipSN], 4, "芯片行数不得超过容量")
	}

	require.NotEmpty(t, plan.Warnings)
	assert.Equal(t, "F-0020-01", plan.Warnings[0].Sample)
	assert.Equal(t, "病原体", plan.Warnings[0].Field)
}

// TestAllocateConfigErrors 整单配置错误在产出任何记录之前失败
func TestAllocateConfigErrors(t *testing.T) {
	var cfgErr *ConfigError

	in := engineInput(1)
	in.Config.SequencerRotation = nil
	_, err := Allocate(in)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "测序仪轮换", cfgErr.Field)

	in = engineInput(1)
	in.Config.ChipCapacity = -1
	_, err = Allocate(in)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "芯片容量", cfgErr.Field)

	in = engineInput(1)
	in.Config.StartDate = "banana"
	_, err = Allocate(in)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "实验启动时间", cfgErr.Field)

	in = engineInput(1)
	in.Rules.ControlPolicy = "随便"
	_, err = Allocate(in)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "规则集", cfgErr.Field)
}

// TestAllocateWarningsPropagate 数据告警穿透到最终计划
func TestAllocateWarningsPropagate(t *testing.T) {
	in := engineInput(2)
	in.Samples[0].RPMRanges = []string{"10~1", "1~10"}

	plan, err := Allocate(in)
	require.NoError(t, err)
	// 坏样本排除：1样本 × 2行 + 对照3行
	assert.Len(t, plan.Libraries, 5)
	require.NotEmpty(t, plan.Warnings)
	assert.Equal(t, "F-0020-01", plan.Warnings[0].Sample)
}

// TestApplyChipEdits 用户编辑芯片行后回填文库记录
func TestApplyChipEdits(t *testing.T) {
	plan, err := Allocate(engineInput(3))
	require.NoError(t, err)
	require.Len(t, plan.Chips, 2)

	edits := make([]models.ChipRecord, len(plan.Chips))
	copy(edits, plan.Chips)
	edits[0].RunDate = "260201"
	edits[0].ChipSN = "" // 留空按新日期重新生成
	edits[1].Remark = "复测"

	updated, err := ApplyChipEdits(plan, edits)
	require.NoError(t, err)

	assert.Equal(t, BuildChipSN("260201", edits[0].SequencerSN, edits[0].RunCount), updated.Chips[0].ChipSN)
	assert.Equal(t, "复测", updated.Chips[1].Remark)

	// 第一张芯片的7行全部改到新日期与新SN
	for _, rec := range updated.Libraries[:7] {
		assert.Equal(t, updated.Chips[0].ChipSN, rec.ChipSN)
		assert.Equal(t, "2026.02.01", rec.RunDate)
		assert.Equal(t, rec.RunDate, rec.AnalysisDate)
	}
	// 第二张芯片的行不受影响
	assert.Equal(t, updated.Chips[1].ChipSN, updated.Libraries[7].ChipSN)

	// 原计划不被修改
	assert.NotEqual(t, updated.Chips[0].ChipSN, plan.Chips[0].ChipSN)
	assert.Equal(t, plan.Chips[0].ChipSN, plan.Libraries[0].ChipSN)
}

// TestApplyChipEditsRowMismatch 增删芯片行是配置错误
func TestApplyChipEditsRowMismatch(t *testing.T) {
	plan, err := Allocate(engineInput(3))
	require.NoError(t, err)

	var cfgErr *ConfigError
	_, err = ApplyChipEdits(plan, plan.Chips[:1])
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "芯片表", cfgErr.Field)
}
