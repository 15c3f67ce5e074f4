/*
 * @module service/parser/reference_parser
 * @description 参考文件解析器：NC/PC对照列表、物种列表、测序仪对应关系，以及参考表/对照请求的组装
 * @architecture 分层架构 - 数据接入层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 打开工作簿 -> 表头识别 -> 行映射 -> 组装引擎输入
 * @rules 可选参考文件缺失返回空表而不是错误；物种列表在前20行内扫描含 名称+taxid 的表头行
 * @dependencies github.com/xuri/excelize/v2
 * @refs service/models, service/allocation
 */

package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"runplan-service/service/models"
)

// ReferenceParser 参考文件解析器
type ReferenceParser struct {
	NCFile        string
	PCFile        string
	SpeciesFile   string
	SequencerFile string
}

// openOptional 打开可选工作簿，文件缺失返回nil而不是错误
func openOptional(path string) (*excelize.File, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("打开参考文件失败 %s: %w", path, err)
	}
	return f, nil
}

// pickSheet 优先返回指定名称的工作表，否则第一个
func pickSheet(f *excelize.File, preferred string) string {
	sheets := f.GetSheetList()
	for _, s := range sheets {
		if s == preferred {
			return s
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

// parseHeaderedRows 按第一行表头把工作表读成 map 行，跳过全空行
func parseHeaderedRows(f *excelize.File, sheet string) ([]map[string]string, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, 0, len(rows[0]))
	for _, h := range rows[0] {
		headers = append(headers, strings.TrimSpace(h))
	}

	var out []map[string]string
	for _, row := range rows[1:] {
		rec := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			v := cell(row, i)
			rec[h] = v
			if v != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ParseNC 解析阴性对照列表（优先 NC列表 工作表）
func (p *ReferenceParser) ParseNC() ([]map[string]string, error) {
	f, err := openOptional(p.NCFile)
	if err != nil || f == nil {
		return nil, err
	}
	defer f.Close()
	return parseHeaderedRows(f, pickSheet(f, "NC列表"))
}

// ParsePC 解析阳性对照列表（优先 PC列表 工作表）
func (p *ReferenceParser) ParsePC() ([]map[string]string, error) {
	f, err := openOptional(p.PCFile)
	if err != nil || f == nil {
		return nil, err
	}
	defer f.Close()
	return parseHeaderedRows(f, pickSheet(f, "PC列表"))
}

// ParseSpecies 解析物种列表：在前20行内找到含 名称+taxid 的表头行，建立 名称 -> 元数据 映射
func (p *ReferenceParser) ParseSpecies() (map[string]models.SpeciesInfo, error) {
	f, err := openOptional(p.SpeciesFile)
	if err != nil || f == nil {
		return map[string]models.SpeciesInfo{}, err
	}
	defer f.Close()

	sheet := pickSheet(f, "物种列表")
	if sheet == "" {
		return map[string]models.SpeciesInfo{}, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	headerRow := -1
	cols := map[string]int{}
	limit := len(rows)
	if limit > 20 {
		limit = 20
	}
	for r := 0; r < limit; r++ {
		hasName, hasTaxID := false, false
		for c, v := range rows[r] {
			switch strings.TrimSpace(v) {
			case "名称":
				hasName = true
				cols["名称"] = c
			case "taxid":
				hasTaxID = true
				cols["taxid"] = c
			case "分类":
				cols["分类"] = c
			case "拉丁文":
				cols["拉丁文"] = c
			}
		}
		if hasName && hasTaxID {
			headerRow = r
			break
		}
		cols = map[string]int{}
	}
	if headerRow < 0 {
		return map[string]models.SpeciesInfo{}, nil
	}

	col := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok {
			return ""
		}
		return cell(row, idx)
	}

	result := make(map[string]models.SpeciesInfo)
	for _, row := range rows[headerRow+1:] {
		name := col(row, "名称")
		if name == "" {
			continue
		}
		result[name] = models.SpeciesInfo{
			Name:      name,
			Category:  col(row, "分类"),
			TaxID:     col(row, "taxid"),
			LatinName: col(row, "拉丁文"),
		}
	}
	return result, nil
}

// ParseSequencers 解析测序仪对应关系：设备序列号 -> 设备型号
func (p *ReferenceParser) ParseSequencers() (map[string]models.SequencerInfo, error) {
	f, err := openOptional(p.SequencerFile)
	if err != nil || f == nil {
		return map[string]models.SequencerInfo{}, err
	}
	defer f.Close()

	rows, err := parseHeaderedRows(f, pickSheet(f, ""))
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.SequencerInfo, len(rows))
	for _, row := range rows {
		sn := strings.TrimSpace(row["设备序列号"])
		if sn == "" {
			continue
		}
		result[sn] = models.SequencerInfo{
			SerialNumber: sn,
			Model:        strings.TrimSpace(row["设备型号"]),
		}
	}
	return result, nil
}

// BuildControls 由NC/PC列表与输入表meta组装对照请求。
// 命名规则：F-{研究编号}-CN-PC / F-{研究编号}-CN-NC，研究编号为空时退化为 PC / NC。
func BuildControls(ncRows, pcRows []map[string]string, meta PlanMeta) []models.ControlRequest {
	rid := strings.TrimSpace(meta.ResearchID)
	pcName, ncName := "PC", "NC"
	if rid != "" {
		pcName = fmt.Sprintf("F-%s-CN-PC", rid)
		ncName = fmt.Sprintf("F-%s-CN-NC", rid)
	}

	var controls []models.ControlRequest

	if len(pcRows) > 0 {
		metrics := make([]models.ControlMetric, 0, len(pcRows))
		for _, row := range pcRows {
			metrics = append(metrics, models.ControlMetric{
				Species:  strings.TrimSpace(row["物种名称"]),
				RPMRange: strings.TrimSpace(row["rpm"]),
			})
		}
		controls = append(controls, models.ControlRequest{
			Kind:          models.ControlPositive,
			Name:          pcName,
			Metrics:       metrics,
			SpikeRPMRange: strings.TrimSpace(meta.PCSpikeRange),
		})
	}

	// NC始终插入：取NC列表第一行的物种名称，缺省为 /
	ncSpecies := "/"
	if len(ncRows) > 0 {
		if s := strings.TrimSpace(ncRows[0]["物种名称"]); s != "" {
			ncSpecies = s
		}
	}
	controls = append(controls, models.ControlRequest{
		Kind:          models.ControlNegative,
		Name:          ncName,
		Metrics:       []models.ControlMetric{{Species: ncSpecies}},
		SpikeRPMRange: strings.TrimSpace(meta.NCSpikeRange),
	})

	return controls
}

// BuildReferenceTables 合并物种表、测序仪对应关系与输入表声明的Run起点
func BuildReferenceTables(species map[string]models.SpeciesInfo, sequencers map[string]models.SequencerInfo, meta PlanMeta) models.ReferenceTables {
	merged := make(map[string]models.SequencerInfo, len(meta.Sequencers))
	for _, ms := range meta.Sequencers {
		info := models.SequencerInfo{SerialNumber: ms.SN, RunStart: ms.RunStart}
		if ref, ok := sequencers[ms.SN]; ok {
			info.Model = ref.Model
		}
		merged[ms.SN] = info
	}
	// 对应关系表中未被输入表引用的测序仪也保留，便于后续编辑时解析
	for sn, ref := range sequencers {
		if _, ok := merged[sn]; !ok {
			merged[sn] = ref
		}
	}

	speciesCopy := make(map[string]models.SpeciesInfo, len(species))
	for k, v := range species {
		speciesCopy[k] = v
	}

	return models.ReferenceTables{
		Species:    speciesCopy,
		Sequencers: merged,
	}
}
