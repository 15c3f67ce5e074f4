/*
 * @module service/parser/input_parser_test
 * @description 输入表解析器单元测试：配置项与样本行识别、全角分隔符折叠、测序仪声明
 * @architecture 测试层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 生成临时工作簿 -> Parse -> 断言meta与样本
 * @rules 测试工作簿写入t.TempDir，随测试自动清理
 * @dependencies testing, stretchr/testify, xuri/excelize
 */

package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runplan-service/testutil"
)

// writeWorkbook 把行矩阵写成临时xlsx，返回文件路径
func writeWorkbook(t *testing.T, sheet string, rows [][]string) string {
	t.Helper()
	return testutil.WriteWorkbook(t, sheet, rows)
}

func inputRows() [][]string {
	return [][]string{
		{"研究编号", "F0020"},
		{"研究列表", "呼吸道"},
		{"研究说明", "验证"},
		{"实验启动时间", "260113"},
		{"接头起点", "A05"},
		{"F-PC", "", "", "7000~10000"},
		{"F-NC", "", "", "0~100"},
		{"需要用到的测序仪台数", "2"},
		{"测序仪1-SN", "Seq1"},
		{"测序仪1-RUN", "143"},
		{"测序仪2-SN", "Seq2"},
		{"测序仪2-RUN", "从588开始"},
		{"", ""},
		{"F-0020-01", "肺炎支原体；CMV", "1~10；20~30", "7000~10000"},
		{"F-0020-02", "CMV", "1~10", ""},
		{"说明性文字不是样本", "x"},
	}
}

func TestInputParserParse(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", inputRows())

	result, err := NewInputParser(path).Parse()
	require.NoError(t, err)

	assert.Equal(t, "F0020", result.Meta.ResearchID)
	assert.Equal(t, "F0020-呼吸道-验证", result.Meta.Project())
	assert.Equal(t, "260113", result.Meta.StartDate)
	assert.Equal(t, "A05", result.Meta.AdapterStart)
	assert.Equal(t, "7000~10000", result.Meta.PCSpikeRange)
	assert.Equal(t, "0~100", result.Meta.NCSpikeRange)

	require.Len(t, result.Meta.Sequencers, 2)
	assert.Equal(t, "Seq1", result.Meta.Sequencers[0].SN)
	assert.Equal(t, 143, result.Meta.Sequencers[0].RunStart)
	assert.Equal(t, 588, result.Meta.Sequencers[1].RunStart, "带说明文字的RUN值只取数字")
	assert.Equal(t, []string{"Seq1", "Seq2"}, result.Meta.RotationSNs())

	require.Len(t, result.Samples, 2)
	assert.Equal(t, "F-0020-01", result.Samples[0].Name)
	assert.Equal(t, []string{"肺炎支原体", "CMV"}, result.Samples[0].Pathogens, "全角分号按半角拆分")
	assert.Equal(t, []string{"1~10", "20~30"}, result.Samples[0].RPMRanges)
	assert.Equal(t, []string{"7000~10000"}, result.Samples[0].SpikeRPMRanges)
	assert.Empty(t, result.Samples[1].SpikeRPMRanges)
}

func TestInputParserDefaults(t *testing.T) {
	rows := [][]string{
		{"研究编号", "F0021"},
		{"F-0021-01", "CMV", "1~10", ""},
	}
	result, err := NewInputParser(writeWorkbook(t, "Sheet1", rows)).Parse()
	require.NoError(t, err)

	assert.Empty(t, result.Meta.AdapterStart, "未填写的接头起点留空，由规则文件或默认值决定")
	assert.Empty(t, result.Meta.Sequencers)
	assert.Equal(t, "F0021", result.Meta.Project())
}

func TestInputParserMissingFile(t *testing.T) {
	_, err := NewInputParser(filepath.Join(t.TempDir(), "nope.xlsx")).Parse()
	assert.Error(t, err)
}

func TestSplitSemicolon(t *testing.T) {
	assert.Nil(t, splitSemicolon(""))
	assert.Nil(t, splitSemicolon("  "))
	assert.Equal(t, []string{"a", "b"}, splitSemicolon("a;b"))
	assert.Equal(t, []string{"a", "b"}, splitSemicolon("a；b；"))
	assert.Equal(t, []string{"a"}, splitSemicolon(" a ; "))
}
