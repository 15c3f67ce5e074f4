/*
 * @module service/allocation/metric_range
 * @description 检测指标范围解析与随机取值：解析 low~high 区间并用可注入的随机源在区间内均匀取值
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 范围字符串 -> 区间 -> 按种子随机取值
 * @rules 空串表示无范围；缺少~、非数字、上下界颠倒均为数据错误；取值闭区间，保留1位小数
 * @dependencies math/rand, strconv, golang.org/x/text/width
 * @refs service/allocation/library_planner.go
 */

package allocation

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// metricRange 一个闭区间 [Low, High]
type metricRange struct {
	Low  float64
	High float64
}

// parseMetricRange 解析范围字符串，格式 low~high（全角～折叠为半角）。
// 空串返回 ok=false 表示无范围。缺少~、非数字、上下界颠倒返回错误。
func parseMetricRange(s string) (metricRange, bool, error) {
	s = strings.TrimSpace(width.Narrow.String(s))
	if s == "" {
		return metricRange{}, false, nil
	}

	parts := strings.Split(s, "~")
	if len(parts) != 2 {
		return metricRange{}, false, fmt.Errorf("范围格式非法, 期望 low~high: %q", s)
	}

	low, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return metricRange{}, false, fmt.Errorf("范围下界不是数字: %q", parts[0])
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return metricRange{}, false, fmt.Errorf("范围上界不是数字: %q", parts[1])
	}
	if low > high {
		return metricRange{}, false, fmt.Errorf("范围上下界颠倒: %q", s)
	}
	return metricRange{Low: low, High: high}, true, nil
}

// drawInRange 在闭区间内均匀取值，保留1位小数，结果收敛回区间边界内
func drawInRange(r metricRange, rng *rand.Rand) float64 {
	if r.Low == r.High {
		return r.Low
	}
	v := r.Low + rng.Float64()*(r.High-r.Low)
	v = math.Round(v*10) / 10
	if v < r.Low {
		v = r.Low
	}
	if v > r.High {
		v = r.High
	}
	return v
}
