/*
 * @module service/generator/output_generator
 * @description 结果表生成器：把排布计划写成文库表、芯片表与合并工作簿，支持模版表头覆盖
 * @architecture 分层架构 - 数据输出层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 计划 -> 行矩阵 -> excelize工作簿 -> 磁盘文件
 * @rules 缺少模版时使用内置默认列序；rpm等数值列无值时写 /
 * @dependencies github.com/xuri/excelize/v2
 * @refs service/models, service/allocation
 */

package generator

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"runplan-service/service/models"
)

// 默认列序，与历史模版一致
var (
	defaultLibraryHeaders = []string{
		"芯片", "芯片数据量", "上机时间", "分析时间", "样本名称", "文库编号", "index",
		"Clean Reads", "≥Q20%", "Q30", "物种名称", "分类", "taxid", "拉丁文",
		"内部对照spike.1RPM值", "rpm", "uniq rpm",
	}
	defaultChipHeaders = []string{
		"实验项目", "测序日期", "测序仪SN", "Run数", "芯片SN", "测序仪型号", "试验结果", "备注2",
	}
)

const (
	librarySheetName    = "文库表"
	chipSheetName       = "芯片表"
	libraryTemplateName = "文库表模版"
	chipTemplateName    = "芯片表模版"
)

// OutputGenerator 结果表生成器
type OutputGenerator struct {
	libraryHeaders []string
	chipHeaders    []string
}

// NewOutputGenerator 创建使用默认列序的生成器
func NewOutputGenerator() *OutputGenerator {
	return &OutputGenerator{
		libraryHeaders: defaultLibraryHeaders,
		chipHeaders:    defaultChipHeaders,
	}
}

// NewOutputGeneratorFromTemplate 从模版工作簿读取表头列序。
// 优先使用 文库表模版/芯片表模版 工作表的首行，缺失的部分回落默认列序。
func NewOutputGeneratorFromTemplate(templatePath string) (*OutputGenerator, error) {
	g := NewOutputGenerator()

	f, err := excelize.OpenFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("打开模版文件失败: %w", err)
	}
	defer f.Close()

	if headers := templateHeaders(f, libraryTemplateName, librarySheetName); len(headers) > 0 {
		g.libraryHeaders = headers
	}
	if headers := templateHeaders(f, chipTemplateName, chipSheetName); len(headers) > 0 {
		g.chipHeaders = headers
	}
	return g, nil
}

// templateHeaders 取第一个存在的候选工作表的首行
func templateHeaders(f *excelize.File, candidates ...string) []string {
	for _, sheet := range candidates {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		var headers []string
		for _, h := range rows[0] {
			headers = append(headers, h)
		}
		if len(headers) > 0 {
			return headers
		}
	}
	return nil
}

// formatMetric 数值列：无值写 /，有值保留一位小数
func formatMetric(v *float64) string {
	if v == nil {
		return "/"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// libraryRow 按表头列名取文库记录对应列值，未知表头列留空
func libraryRow(headers []string, rec models.LibraryRecord) []interface{} {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		switch h {
		case "芯片":
			row[i] = rec.ChipSN
		case "芯片数据量":
			row[i] = rec.ChipDataVolume
		case "上机时间":
			row[i] = rec.RunDate
		case "分析时间":
			row[i] = rec.AnalysisDate
		case "样本名称":
			row[i] = rec.SampleName
		case "文库编号":
			row[i] = rec.LibraryNo
		case "index":
			row[i] = rec.Index
		case "物种名称":
			row[i] = rec.Species
		case "分类":
			row[i] = rec.Category
		case "taxid":
			row[i] = rec.TaxID
		case "拉丁文":
			row[i] = rec.LatinName
		case "内部对照spike.1RPM值":
			row[i] = formatMetric(rec.SpikeRPM)
		case "rpm":
			row[i] = formatMetric(rec.RPM)
		default:
			row[i] = ""
		}
	}
	return row
}

// chipRow 按表头列名取芯片记录对应列值
func chipRow(headers []string, rec models.ChipRecord) []interface{} {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		switch h {
		case "实验项目":
			row[i] = rec.Project
		case "测序日期":
			row[i] = rec.RunDate
		case "测序仪SN":
			row[i] = rec.SequencerSN
		case "Run数":
			row[i] = rec.RunCount
		case "芯片SN":
			row[i] = rec.ChipSN
		case "测序仪型号":
			row[i] = rec.SequencerModel
		case "试验结果":
			row[i] = rec.Result
		case "备注2":
			row[i] = rec.Remark
		default:
			row[i] = ""
		}
	}
	return row
}

// writeSheet 写入表头与行矩阵
func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return err
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	headerVals := make([]interface{}, len(headers))
	for i, h := range headers {
		headerVals[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerVals); err != nil {
		return err
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			return err
		}
	}
	return nil
}

func (g *OutputGenerator) libraryRows(records []models.LibraryRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, libraryRow(g.libraryHeaders, rec))
	}
	return rows
}

func (g *OutputGenerator) chipRows(records []models.ChipRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, chipRow(g.chipHeaders, rec))
	}
	return rows
}

// WriteLibraryTable 写文库表工作簿
func (g *OutputGenerator) WriteLibraryTable(records []models.LibraryRecord, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", librarySheetName); err != nil {
		return err
	}
	if err := writeSheet(f, librarySheetName, g.libraryHeaders, g.libraryRows(records)); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存文库表失败: %w", err)
	}
	return nil
}

// WriteChipTable 写芯片表工作簿
func (g *OutputGenerator) WriteChipTable(records []models.ChipRecord, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", chipSheetName); err != nil {
		return err
	}
	if err := writeSheet(f, chipSheetName, g.chipHeaders, g.chipRows(records)); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存芯片表失败: %w", err)
	}
	return nil
}

// WriteCombined 把文库表与芯片表写进同一个工作簿的两个工作表
func (g *OutputGenerator) WriteCombined(plan *models.Plan, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", librarySheetName); err != nil {
		return err
	}
	if err := writeSheet(f, librarySheetName, g.libraryHeaders, g.libraryRows(plan.Libraries)); err != nil {
		return err
	}
	if err := writeSheet(f, chipSheetName, g.chipHeaders, g.chipRows(plan.Chips)); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("保存合并结果表失败: %w", err)
	}
	return nil
}
