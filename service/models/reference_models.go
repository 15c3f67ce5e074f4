/*
 * @module service/models/reference_models
 * @description 参考表模型定义，物种与测序仪的名称到元数据映射
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 参考文件解析 -> 参考表构建 -> 排布引擎只读查询
 * @rules 参考表在单次排布期间不可变，查询未命中是数据告警而非崩溃
 * @dependencies 无
 * @refs service/allocation, service/parser
 */

package models

// SpeciesInfo 物种元数据（来自物种列表）
type SpeciesInfo struct {
	Name      string `json:"name"`       // 名称（显示名）
	Category  string `json:"category"`   // 分类
	TaxID     string `json:"taxid"`      // taxid
	LatinName string `json:"latin_name"` // 拉丁文
}

// SequencerInfo 测序仪元数据（来自测序仪对应关系表）
type SequencerInfo struct {
	SerialNumber string `json:"serial_number"` // 设备序列号
	Model        string `json:"model"`         // 设备型号
	RunStart     int    `json:"run_start"`     // Run计数起点
}

// ReferenceTables 单次排布使用的全部参考表
type ReferenceTables struct {
	Species    map[string]SpeciesInfo   `json:"species"`    // 名称 -> 物种元数据
	Sequencers map[string]SequencerInfo `json:"sequencers"` // 名称/SN -> 测序仪元数据
}
