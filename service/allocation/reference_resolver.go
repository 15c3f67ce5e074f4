/*
 * @module service/allocation/reference_resolver
 * @description 参考表解析器，按规范化名称精确查询物种与测序仪元数据
 * @architecture 分层架构 - 业务服务层（排布引擎叶子依赖）
 * @documentReference ai_docs/runplan_requirements.md
 * @stateFlow 参考表构建 -> 排布期间只读查询
 * @rules 名称查询做去空白、保留大小写的精确匹配，未命中不是错误由调用方降级处理
 * @dependencies strings
 * @refs service/models
 */

package allocation

import (
	"strings"

	"runplan-service/service/models"
)

// Resolver 参考表解析器，对单次排布不可变
type Resolver struct {
	species    map[string]models.SpeciesInfo
	sequencers map[string]models.SequencerInfo
}

// NewResolver 根据参考表构建解析器，键在构建时统一去空白
func NewResolver(tables models.ReferenceTables) *Resolver {
	r := &Resolver{
		species:    make(map[string]models.SpeciesInfo, len(tables.Species)),
		sequencers: make(map[string]models.SequencerInfo, len(tables.Sequencers)),
	}
	for name, info := range tables.Species {
		r.species[strings.TrimSpace(name)] = info
	}
	for name, info := range tables.Sequencers {
		r.sequencers[strings.TrimSpace(name)] = info
	}
	return r
}

// ResolveSpecies 查询物种元数据，返回是否命中
func (r *Resolver) ResolveSpecies(name string) (models.SpeciesInfo, bool) {
	info, ok := r.species[strings.TrimSpace(name)]
	return info, ok
}

// ResolveSequencer 查询测序仪元数据，返回是否命中
func (r *Resolver) ResolveSequencer(name string) (models.SequencerInfo, bool) {
	info, ok := r.sequencers[strings.TrimSpace(name)]
	return info, ok
}
