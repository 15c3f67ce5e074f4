/*
 * @module service/models/session_models
 * @description 交互式排布会话模型，保存两阶段流程之间的输入上下文与产物路径
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 生成芯片表 -> 用户编辑 -> 生成文库表 -> 生成输出文件 -> 下载/清理
 * @rules 会话是临时状态，带TTL，过期后由清理服务删除
 * @dependencies time
 * @refs service/session, api/controllers
 */

package models

import "time"

// AllocationConfig 单次排布的配置面，由CLI或Web层提供
type AllocationConfig struct {
	Project           string   `json:"project"`            // 实验项目名称
	ChipCapacity      int      `json:"chip_capacity"`      // 芯片容量，默认96
	StartDate         string   `json:"start_date"`         // 实验启动日期，格式 YYMMDD
	SequencerRotation []string `json:"sequencer_rotation"` // 测序仪轮换顺序（名称或SN）
	Seed              int64    `json:"seed"`               // 随机种子，0表示按时间取
}

// PlanSession 两阶段排布会话
type PlanSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	WorkDir   string    `json:"work_dir"` // 上传文件与输出文件所在的临时目录

	Samples  []SampleRequest  `json:"samples"`
	Controls []ControlRequest `json:"controls"`
	Tables   ReferenceTables  `json:"tables"`
	Rules    RuleSet          `json:"rules"`
	Config   AllocationConfig `json:"config"`

	// 第一步排布产出的计划，后续步骤在此基础上套用用户编辑
	Plan *Plan `json:"plan,omitempty"`

	// 第三步生成的输出文件路径，键为 combined/library/chip
	OutputFiles map[string]string `json:"output_files"`
}

// Expired 会话是否已过期
func (s *PlanSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
