/*
 * @module service/allocation/errors
 * @description 排布引擎错误分类定义：逐条数据错误、整单配置错误、内部不变量违例
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 校验失败 -> 构造结构化错误 -> 调用方按类别处理
 * @rules 数据错误降级为告警继续执行，配置错误在产出任何记录前整单失败，不变量违例立即中止
 * @dependencies fmt
 * @refs service/allocation/engine.go
 */

package allocation

import "fmt"

// DataError 逐条数据错误：范围格式非法、参考表未命中、重复标识、字段数量不一致等。
// 默认该条记录被排除并记录告警，排布继续。
type DataError struct {
	Sample string // 相关样本/对照名称
	Field  string // 出错字段
	Reason string // 原因
}

func (e *DataError) Error() string {
	return fmt.Sprintf("数据错误 [样本=%s 字段=%s]: %s", e.Sample, e.Field, e.Reason)
}

// ConfigError 整单配置错误：非正容量、空测序仪轮换表、无法解析的启动日期等。
// 在产出任何记录之前使整个排布失败。
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置错误 [%s]: %s", e.Field, e.Reason)
}

// InvariantError 内部不变量违例：样本被拆分到两张芯片、文库编号/index被复用等。
// 属于内部故障，必须中止排布而不是输出错误结果。
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("内部错误: %s", e.Reason)
}
