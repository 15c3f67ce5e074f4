/*
 * @module service/generator/output_generator_test
 * @description 结果表生成器单元测试：默认列序、模版表头覆盖、数值列格式与合并工作簿
 * @architecture 测试层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 构造计划 -> 生成工作簿 -> 重新读回断言
 * @rules 写出的文件在t.TempDir中随测试清理
 * @dependencies testing, stretchr/testify, xuri/excelize
 */

package generator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"runplan-service/service/models"
	"runplan-service/testutil"
)

func ptr(v float64) *float64 { return &v }

func samplePlan() *models.Plan {
	return &models.Plan{
		Libraries: []models.LibraryRecord{
			{
				ChipSN:         "260113_SN100143_0143_AXXXXXXXXX",
				ChipDataVolume: "420M",
				RunDate:        "2026.01.13",
				AnalysisDate:   "2026.01.13",
				SampleName:     "F-0020-01",
				LibraryNo:      "F0020-0001",
				Index:          "A01",
				Species:        "CMV",
				Category:       "病毒",
				TaxID:          "10359",
				LatinName:      "Human cytomegalovirus",
				RPM:            ptr(3.5),
				SpikeRPM:       ptr(8200.0),
			},
			{
				ChipSN:       "260113_SN100143_0143_AXXXXXXXXX",
				RunDate:      "2026.01.13",
				AnalysisDate: "2026.01.13",
				SampleName:   "F-0020-CN-NC",
				LibraryNo:    "F0020-0002",
				Index:        "A02",
				Species:      "/",
				IsControl:    true,
			},
		},
		Chips: []models.ChipRecord{
			{
				Project:        "F0020-呼吸道-验证",
				RunDate:        "260113",
				SequencerSN:    "SN100143",
				RunCount:       143,
				ChipSN:         "260113_SN100143_0143_AXXXXXXXXX",
				SequencerModel: "MGISEQ-200",
			},
		},
	}
}

// readRows 读回工作簿的指定工作表
func readRows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	return testutil.ReadSheet(t, path, sheet)
}

func TestWriteLibraryTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "文库表.xlsx")
	require.NoError(t, NewOutputGenerator().WriteLibraryTable(samplePlan().Libraries, path))

	rows := readRows(t, path, "文库表")
	require.Len(t, rows, 3)
	assert.Equal(t, defaultLibraryHeaders, rows[0])

	first := rows[1]
	assert.Equal(t, "260113_SN100143_0143_AXXXXXXXXX", first[0])
	assert.Equal(t, "420M", first[1])
	assert.Equal(t, "F-0020-01", first[4])
	assert.Equal(t, "F0020-0001", first[5])
	assert.Equal(t, "A01", first[6])
	assert.Equal(t, "CMV", first[10])
	assert.Equal(t, "8200.0", first[14])
	assert.Equal(t, "3.5", first[15])

	// 无值的数值列写 /
	second := rows[2]
	assert.Equal(t, "/", second[14])
	assert.Equal(t, "/", second[15])
}

func TestWriteChipTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "芯片表.xlsx")
	require.NoError(t, NewOutputGenerator().WriteChipTable(samplePlan().Chips, path))

	rows := readRows(t, path, "芯片表")
	require.Len(t, rows, 2)
	assert.Equal(t, defaultChipHeaders, rows[0])
	assert.Equal(t, "F0020-呼吸道-验证", rows[1][0])
	assert.Equal(t, "260113", rows[1][1])
	assert.Equal(t, "143", rows[1][3])
	assert.Equal(t, "MGISEQ-200", rows[1][5])
}

func TestWriteCombined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "结果表.xlsx")
	require.NoError(t, NewOutputGenerator().WriteCombined(samplePlan(), path))

	libRows := readRows(t, path, "文库表")
	chipRows := readRows(t, path, "芯片表")
	assert.Len(t, libRows, 3)
	assert.Len(t, chipRows, 2)
}

func TestTemplateHeaderOverride(t *testing.T) {
	// 模版只覆盖文库表表头并调整列序
	tpl := excelize.NewFile()
	require.NoError(t, tpl.SetSheetName("Sheet1", "文库表模版"))
	headers := []interface{}{"样本名称", "文库编号", "index", "rpm"}
	require.NoError(t, tpl.SetSheetRow("文库表模版", "A1", &headers))
	tplPath := filepath.Join(t.TempDir(), "模版.xlsx")
	require.NoError(t, tpl.SaveAs(tplPath))
	require.NoError(t, tpl.Close())

	g, err := NewOutputGeneratorFromTemplate(tplPath)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "文库表.xlsx")
	require.NoError(t, g.WriteLibraryTable(samplePlan().Libraries, path))

	rows := readRows(t, path, "文库表")
	assert.Equal(t, []string{"样本名称", "文库编号", "index", "rpm"}, rows[0])
	assert.Equal(t, "F-0020-01", rows[1][0])
	assert.Equal(t, "3.5", rows[1][3])

	// 芯片表模版缺失时保持默认列序
	chipPath := filepath.Join(t.TempDir(), "芯片表.xlsx")
	require.NoError(t, g.WriteChipTable(samplePlan().Chips, chipPath))
	assert.Equal(t, defaultChipHeaders, readRows(t, chipPath, "芯片表")[0])
}

func TestTemplateFileMissing(t *testing.T) {
	_, err := NewOutputGeneratorFromTemplate(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
