/*
 * @module service/allocation/metric_range_test
 * @description 检测指标范围解析与随机取值的单元测试
 * @architecture 测试层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 构造范围字符串 -> 解析/取值 -> 断言
 * @rules 覆盖合法区间、全角折叠、各类非法格式与闭区间取值
 * @dependencies testing, stretchr/testify, math/rand
 */

package allocation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseMetricRange 测试范围字符串解析
func TestParseMetricRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLow float64
		wantTop float64
		wantOK  bool
		wantErr bool
	}{
		{name: "普通区间", input: "1~10", wantLow: 1, wantTop: 10, wantOK: true},
		{name: "小数区间", input: "0.5~2.5", wantLow: 0.5, wantTop: 2.5, wantOK: true},
		{name: "带空白", input: " 7000 ~ 10000 ", wantLow: 7000, wantTop: 10000, wantOK: true},
		{name: "全角波浪线", input: "1～10", wantLow: 1, wantTop: 10, wantOK: true},
		{name: "上下界相等", input: "5~5", wantLow: 5, wantTop: 5, wantOK: true},
		{name: "空串表示无范围", input: "", wantOK: false},
		{name: "仅空白表示无范围", input: "   ", wantOK: false},
		{name: "缺少波浪线", input: "10", wantErr: true},
		{name: "下界非数字", input: "abc~10", wantErr: true},
		{name: "上界非数字", input: "1~xyz", wantErr: true},
		{name: "上下界颠倒", input: "10~1", wantErr: true},
		{name: "多个波浪线", input: "1~5~10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok, err := parseMetricRange(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantLow, r.Low)
				assert.Equal(t, tt.wantTop, r.High)
			}
		})
	}
}

// TestDrawInRange 测试随机取值始终落在闭区间内且保留1位小数
func TestDrawInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := metricRange{Low: 1, High: 10}

	for i := 0; i < 1000; i++ {
		v := drawInRange(r, rng)
		assert.GreaterOrEqual(t, v, r.Low)
		assert.LessOrEqual(t, v, r.High)
		// 保留1位小数
		assert.InDelta(t, v, float64(int(v*10+0.5))/10, 1e-9)
	}
}

// TestDrawInRangeDegenerate 上下界相等时直接返回该值
func TestDrawInRangeDegenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 5.0, drawInRange(metricRange{Low: 5, High: 5}, rng))
}

// TestDrawInRangeDeterministic 相同种子产生相同取值序列
func TestDrawInRangeDeterministic(t *testing.T) {
	r := metricRange{Low: 0, High: 100}

	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		assert.Equal(t, drawInRange(r, a), drawInRange(r, b))
	}
}
