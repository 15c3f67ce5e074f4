/*
 * @module service/allocation/reference_resolver_test
 * @description 参考表解析器单元测试
 * @architecture 测试层
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 构建参考表 -> 查询 -> 断言
 * @rules 精确匹配、去空白、未命中返回false
 * @dependencies testing, stretchr/testify
 */

package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"runplan-service/service/models"
)

func testTables() models.ReferenceTables {
	return models.ReferenceTables{
		Species: map[string]models.SpeciesInfo{
			"肺炎支原体": {Name: "肺炎支原体", Category: "细菌", TaxID: "2104", LatinName: "Mycoplasma pneumoniae"},
			"CMV":   {Name: "CMV", Category: "病毒", TaxID: "10359", LatinName: "Human cytomegalovirus"},
		},
		Sequencers: map[string]models.SequencerInfo{
			"Seq1":   {SerialNumber: "SN100143", Model: "MGISEQ-200", RunStart: 143},
			"Seq2 ":  {SerialNumber: "SN100588", Model: "MGISEQ-2000", RunStart: 588},
			"Seq300": {SerialNumber: "SN100300", Model: "MGISEQ-200", RunStart: 0},
		},
	}
}

// TestResolveSpecies 测试物种查询
func TestResolveSpecies(t *testing.T) {
	r := NewResolver(testTables())

	info, ok := r.ResolveSpecies("肺炎支原体")
	assert.True(t, ok)
	assert.Equal(t, "2104", info.TaxID)
	assert.Equal(t, "Mycoplasma pneumoniae", info.LatinName)

	// 查询时去空白
	info, ok = r.ResolveSpecies("  CMV ")
	assert.True(t, ok)
	assert.Equal(t, "病毒", info.Category)

	// 大小写保留，不做折叠
	_, ok = r.ResolveSpecies("cmv")
	assert.False(t, ok)

	_, ok = r.ResolveSpecies("不存在的物种")
	assert.False(t, ok)
}

// TestResolveSequencer 测试测序仪查询（构建时键也去空白）
func TestResolveSequencer(t *testing.T) {
	r := NewResolver(testTables())

	info, ok := r.ResolveSequencer("Seq1")
	assert.True(t, ok)
	assert.Equal(t, "SN100143", info.SerialNumber)
	assert.Equal(t, 143, info.RunStart)

	info, ok = r.ResolveSequencer("Seq2")
	assert.True(t, ok)
	assert.Equal(t, "MGISEQ-2000", info.Model)

	_, ok = r.ResolveSequencer("SeqX")
	assert.False(t, ok)
}
