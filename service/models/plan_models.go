/*
 * @module service/models/plan_models
 * @description 排布计划相关模型定义，包含样本请求、对照请求、文库记录、芯片记录等核心数据结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 输入解析 -> 文库排布 -> 芯片排布 -> 表格输出
 * @rules 记录为一次排布独占的值对象，排布完成后不再修改
 * @dependencies 无
 * @refs service/allocation
 */

package models

// ControlKind 对照类型
type ControlKind string

const (
	// ControlNegative 阴性对照（NC）
	ControlNegative ControlKind = "NC"
	// ControlPositive 阳性对照（PC）
	ControlPositive ControlKind = "PC"
)

// SampleRequest 样本请求
// 三个列表来自输入表同一行的三个分号分隔字段，数量须一致（长度为1的范围列表
// 广播到所有病原体）
type SampleRequest struct {
	Name           string   `json:"name"`             // 样本名称，如 F-0020-01
	Pathogens      []string `json:"pathogens"`        // 病原体名称列表
	RPMRanges      []string `json:"rpm_ranges"`       // rpm范围列表，格式 low~high
	SpikeRPMRanges []string `json:"spike_rpm_ranges"` // 内部对照spike rpm范围列表
}

// ControlMetric 对照的单条检测指标
type ControlMetric struct {
	Species  string `json:"species"`   // 物种名称，NC通常为 /
	RPMRange string `json:"rpm_range"` // rpm范围，可为空
}

// ControlRequest 对照请求（NC/PC）
// 对照与单病原体样本一样占用一个文库编号和一个index，PC按指标展开为多行
type ControlRequest struct {
	Kind          ControlKind     `json:"kind"`
	Name          string          `json:"name"`            // 对照名称，如 F-0020-CN-PC
	Metrics       []ControlMetric `json:"metrics"`         // 每条指标产生一行文库记录
	SpikeRPMRange string          `json:"spike_rpm_range"` // 整个对照共享的spike rpm范围
}

// LibraryRecord 文库记录
// 芯片相关字段（芯片SN、芯片数据量、上机/分析时间）在芯片排布前为空
type LibraryRecord struct {
	ChipSN         string   `json:"chip_sn"`          // 芯片SN
	ChipDataVolume string   `json:"chip_data_volume"` // 芯片数据量，如 420M
	RunDate        string   `json:"run_date"`         // 上机时间，格式 2026.01.13
	AnalysisDate   string   `json:"analysis_date"`    // 分析时间（与上机时间同值的重复列）
	SampleName     string   `json:"sample_name"`      // 样本/对照名称
	LibraryNo      string   `json:"library_no"`       // 文库编号，同一样本的所有行共享
	Index          string   `json:"index"`            // 接头号，同一样本的所有行共享
	Species        string   `json:"species"`          // 物种/病原体名称
	Category       string   `json:"category"`         // 分类（物种列表查得）
	TaxID          string   `json:"taxid"`            // taxid
	LatinName      string   `json:"latin_name"`       // 拉丁文
	RPM            *float64 `json:"rpm"`              // 生成的rpm值，无范围时为空
	SpikeRPM       *float64 `json:"spike_rpm"`        // 生成的spike rpm值，无范围时为空
	IsControl      bool     `json:"is_control"`       // 是否对照行
}

// ChipRecord 芯片记录
// 每当当前芯片填充数将超出容量时产生一条新记录，拥有文库序列中连续的一段
type ChipRecord struct {
	Project        string `json:"project"`         // 实验项目
	RunDate        string `json:"run_date"`        // 测序日期，格式 YYMMDD
	SequencerSN    string `json:"sequencer_sn"`    // 测序仪SN
	RunCount       int    `json:"run_count"`       // Run数
	ChipSN         string `json:"chip_sn"`         // 芯片SN，格式 YYMMDD_SN_RRRR_AXXXXXXXXX
	SequencerModel string `json:"sequencer_model"` // 测序仪型号
	Result         string `json:"result"`          // 试验结果（占位）
	Remark         string `json:"remark"`          // 备注2（占位）
}

// Warning 非致命的逐条数据告警
type Warning struct {
	Sample string `json:"sample"` // 相关样本/对照名称
	Field  string `json:"field"`  // 出错字段
	Reason string `json:"reason"` // 原因说明
}

// Plan 一次完整排布的输出。
// Config为补全默认值后的生效配置，种子按时间取时也回填实际值，凭它可复现本次排布。
type Plan struct {
	Libraries []LibraryRecord  `json:"libraries"`
	Chips     []ChipRecord     `json:"chips"`
	Warnings  []Warning        `json:"warnings"`
	Config    AllocationConfig `json:"config"`
}
