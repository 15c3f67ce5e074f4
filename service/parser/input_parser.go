/*
 * @module service/parser/input_parser
 * @description 输入表解析器：解析输入表Excel为配置项（meta）与样本请求，支持全角分隔符折叠
 * @architecture 分层架构 - 数据接入层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 打开工作簿 -> 逐行识别配置项/样本行 -> 产出PlanMeta与样本请求
 * @rules 样本行按 ^[A-Za-z]-\d{4}-\d{2}$ 识别；分号分隔字段兼容全角；配置项保留Value1..3三列
 * @dependencies github.com/xuri/excelize/v2, github.com/spf13/cast, golang.org/x/text/width
 * @refs service/models, service/allocation
 */

package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"

	"runplan-service/service/models"
)

var sampleIDRe = regexp.MustCompile(`^[A-Za-z]-\d{4}-\d{2}$`)

// MetaSequencer 输入表中声明的一台测序仪（测序仪N-SN / 测序仪N-RUN）
type MetaSequencer struct {
	Position int    `json:"position"` // 声明序号，从1开始
	SN       string `json:"sn"`       // 测序仪SN
	RunStart int    `json:"run_start"`
}

// PlanMeta 输入表的配置项部分
type PlanMeta struct {
	ResearchID   string          `json:"research_id"`   // 研究编号
	ResearchList string          `json:"research_list"` // 研究列表
	ResearchDesc string          `json:"research_desc"` // 研究说明
	StartDate    string          `json:"start_date"`    // 实验启动时间 YYMMDD
	AdapterStart string          `json:"adapter_start"` // 接头起点，未填写时留空由规则决定
	PCSpikeRange string          `json:"pc_spike_range"`
	NCSpikeRange string          `json:"nc_spike_range"`
	Sequencers   []MetaSequencer `json:"sequencers"`
}

// Project 实验项目名称：研究编号-研究列表-研究说明
func (m PlanMeta) Project() string {
	parts := []string{m.ResearchID, m.ResearchList, m.ResearchDesc}
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "-")
}

// RotationSNs 按声明顺序返回测序仪SN，作为芯片排布的轮换顺序
func (m PlanMeta) RotationSNs() []string {
	sns := make([]string, 0, len(m.Sequencers))
	for _, s := range m.Sequencers {
		sns = append(sns, s.SN)
	}
	return sns
}

// ParseResult 输入表的解析产物
type ParseResult struct {
	Meta    PlanMeta               `json:"meta"`
	Samples []models.SampleRequest `json:"samples"`
}

// InputParser 输入表解析器
type InputParser struct {
	path string
}

// NewInputParser 创建输入表解析器
func NewInputParser(path string) *InputParser {
	return &InputParser{path: path}
}

// splitSemicolon 分号分隔，兼容全角；，去空项并去空白
func splitSemicolon(val string) []string {
	s := strings.TrimSpace(width.Narrow.String(val))
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cell 按下标安全取列值
func cell(row []string, idx int) string {
	if idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

// Parse 解析输入表：配置项(key, Value1..3) + 样本行(样本名, 病原体, rpm范围, spike范围)
func (p *InputParser) Parse() (*ParseResult, error) {
	f, err := excelize.OpenFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("打开输入表失败: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("输入表没有工作表: %s", p.path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("读取输入表失败: %w", err)
	}

	meta := make(map[string][3]string)
	result := &ParseResult{}

	for _, row := range rows {
		key := cell(row, 0)
		if key == "" {
			continue
		}

		if sampleIDRe.MatchString(key) {
			result.Samples = append(result.Samples, models.SampleRequest{
				Name:           key,
				Pathogens:      splitSemicolon(cell(row, 1)),
				RPMRanges:      splitSemicolon(cell(row, 2)),
				SpikeRPMRanges: splitSemicolon(cell(row, 3)),
			})
			continue
		}

		meta[key] = [3]string{cell(row, 1), cell(row, 2), cell(row, 3)}
	}

	value1 := func(key string) string { return meta[key][0] }

	result.Meta = PlanMeta{
		ResearchID:   value1("研究编号"),
		ResearchList: value1("研究列表"),
		ResearchDesc: value1("研究说明"),
		StartDate:    value1("实验启动时间"),
		AdapterStart: value1("接头起点"),
		PCSpikeRange: meta["F-PC"][2],
		NCSpikeRange: meta["F-NC"][2],
	}

	// 测序仪声明：需要用到的测序仪台数 + 测序仪N-SN / 测序仪N-RUN
	count := cast.ToInt(value1("需要用到的测序仪台数"))
	for i := 1; i <= count; i++ {
		sn := value1(fmt.Sprintf("测序仪%d-SN", i))
		if sn == "" {
			continue
		}
		result.Meta.Sequencers = append(result.Meta.Sequencers, MetaSequencer{
			Position: i,
			SN:       sn,
			RunStart: cast.ToInt(onlyDigits(value1(fmt.Sprintf("测序仪%d-RUN", i)))),
		})
	}

	return result, nil
}

var digitsRe = regexp.MustCompile(`\d+`)

// onlyDigits 提取字符串中的数字部分（Run起始值可能带说明文字）
func onlyDigits(s string) string {
	return strings.Join(digitsRe.FindAllString(s, -1), "")
}
