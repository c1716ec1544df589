// Package resource 定义文档模型：编码文本、骨架以及过滤器产生的各类资源
package resource

import (
	"sort"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
)

// TypeAttribute 来自标记属性值的文本单元类型，写出时按属性转义
const TypeAttribute = "x-attribute"

// Resource 结构性资源的公共接口
type Resource interface {
	ID() string
	SetID(id string)
	Name() string
	Skeleton() *Skeleton
	SetSkeleton(skel *Skeleton)
	Property(name string) (*Property, bool)
	SetProperty(name, value string, readOnly bool)
	// IsReferent 被其它资源的骨架引用，只能在引用处输出
	IsReferent() bool
	SetIsReferent(referent bool)
}

type base struct {
	id       string
	name     string
	typ      string
	mimeType string
	skeleton *Skeleton
	props    Properties
	referent bool
}

func (b *base) ID() string                  { return b.id }
func (b *base) SetID(id string)             { b.id = id }
func (b *base) Name() string                { return b.name }
func (b *base) SetName(name string)         { b.name = name }
func (b *base) Type() string                { return b.typ }
func (b *base) SetType(typ string)          { b.typ = typ }
func (b *base) MimeType() string            { return b.mimeType }
func (b *base) SetMimeType(mime string)     { b.mimeType = mime }
func (b *base) Skeleton() *Skeleton         { return b.skeleton }
func (b *base) SetSkeleton(skel *Skeleton)  { b.skeleton = skel }
func (b *base) IsReferent() bool            { return b.referent }
func (b *base) SetIsReferent(referent bool) { b.referent = referent }

func (b *base) Property(name string) (*Property, bool) {
	return b.props.Get(name)
}

func (b *base) SetProperty(name, value string, readOnly bool) {
	b.props.Set(name, value, readOnly)
}

// PropertyNames 按名称排序的属性名
func (b *base) PropertyNames() []string {
	return b.props.Names()
}

func (b *base) clone() base {
	cp := *b
	if b.skeleton != nil {
		cp.skeleton = b.skeleton.Clone()
	}
	cp.props = b.props.Clone()
	return cp
}

// StartDocument 文档开始
type StartDocument struct {
	base
	Locale   LocaleID
	Encoding string
	// HasBOM 输入以 Unicode BOM 开头
	HasBOM bool
	// LineBreak 原文使用的换行符
	LineBreak      string
	IsMultilingual bool
	FilterID       string
	FilterParams   params.Parameters
	// Encoders 写出时使用的编码器集合
	Encoders *encoder.Manager
	// SkeletonWriter 能够处理本文档骨架的写出器
	SkeletonWriter SkeletonWriter
}

// NewStartDocument 创建文档开始资源
func NewStartDocument(id string) *StartDocument {
	return &StartDocument{base: base{id: id}, LineBreak: "\n"}
}

// Ending 文档、子文档或分组的结束
type Ending struct {
	base
}

// NewEnding 创建结束资源
func NewEnding(id string) *Ending {
	return &Ending{base: base{id: id}}
}

// StartGroup 分组开始，例如 HTML 的块级元素或列表
type StartGroup struct {
	base
	ParentID string
}

// NewStartGroup 创建分组
func NewStartGroup(parentID, id string) *StartGroup {
	return &StartGroup{base: base{id: id}, ParentID: parentID}
}

// StartSubDocument 子文档开始，例如压缩包中的一个文件
type StartSubDocument struct {
	base
	ParentID string
}

// NewStartSubDocument 创建子文档
func NewStartSubDocument(parentID, id string) *StartSubDocument {
	return &StartSubDocument{base: base{id: id}, ParentID: parentID}
}

// DocumentPart 不可翻译的文档片段
type DocumentPart struct {
	base
}

// NewDocumentPart 创建文档片段
func NewDocumentPart(id string, skel *Skeleton) *DocumentPart {
	return &DocumentPart{base: base{id: id, skeleton: skel}}
}

// Clone 复制
func (dp *DocumentPart) Clone() *DocumentPart {
	return &DocumentPart{base: dp.base.clone()}
}

// TextUnit 可翻译单元
type TextUnit struct {
	base
	Annotations
	source       *TextContainer
	targets      map[LocaleID]*TextContainer
	translatable bool
	// PreserveWhitespace 是否保留空白
	PreserveWhitespace bool
}

// NewTextUnit 创建文本单元
func NewTextUnit(id, text string) *TextUnit {
	return &TextUnit{
		base:         base{id: id},
		source:       NewTextContainer(text),
		translatable: true,
	}
}

// NewTextUnitFromFragment 用编码片段创建文本单元
func NewTextUnitFromFragment(id string, tf *TextFragment) *TextUnit {
	return &TextUnit{
		base:         base{id: id},
		source:       NewTextContainerFromFragment(tf),
		translatable: true,
	}
}

// Source 源文容器
func (tu *TextUnit) Source() *TextContainer {
	return tu.source
}

// SetSource 替换源文
func (tu *TextUnit) SetSource(tc *TextContainer) {
	tu.source = tc
}

// SetSourceContent 用片段替换源文
func (tu *TextUnit) SetSourceContent(tf *TextFragment) {
	tu.source = NewTextContainerFromFragment(tf)
}

// Target 指定语言的译文，没有时返回 nil
func (tu *TextUnit) Target(locale LocaleID) *TextContainer {
	return tu.targets[locale]
}

// HasTarget 是否存在译文
func (tu *TextUnit) HasTarget(locale LocaleID) bool {
	_, ok := tu.targets[locale]
	return ok
}

// SetTarget 设置译文
func (tu *TextUnit) SetTarget(locale LocaleID, tc *TextContainer) {
	if tu.targets == nil {
		tu.targets = make(map[LocaleID]*TextContainer)
	}
	tu.targets[locale] = tc
}

// CreateTarget 以源文副本创建译文，已存在且不覆盖时返回原译文
func (tu *TextUnit) CreateTarget(locale LocaleID, overwrite bool) *TextContainer {
	if tc, ok := tu.targets[locale]; ok && !overwrite {
		return tc
	}
	tc := tu.source.Clone()
	tu.SetTarget(locale, tc)
	return tc
}

// RemoveTarget 删除译文
func (tu *TextUnit) RemoveTarget(locale LocaleID) {
	delete(tu.targets, locale)
}

// TargetLocales 已有译文的语言，排序后返回
func (tu *TextUnit) TargetLocales() []LocaleID {
	locs := make([]LocaleID, 0, len(tu.targets))
	for loc := range tu.targets {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// IsTranslatable 是否可翻译
func (tu *TextUnit) IsTranslatable() bool {
	return tu.translatable
}

// SetTranslatable 设置是否可翻译
func (tu *TextUnit) SetTranslatable(v bool) {
	tu.translatable = v
}

// IsEmpty 源文是否为空
func (tu *TextUnit) IsEmpty() bool {
	return tu.source == nil || tu.source.IsEmpty()
}

// Clone 深度复制
func (tu *TextUnit) Clone() *TextUnit {
	cp := &TextUnit{
		base:               tu.base.clone(),
		Annotations:        tu.Annotations.Clone(),
		source:             tu.source.Clone(),
		translatable:       tu.translatable,
		PreserveWhitespace: tu.PreserveWhitespace,
	}
	for loc, tc := range tu.targets {
		cp.SetTarget(loc, tc.Clone())
	}
	return cp
}

// Arena 按插入顺序保存资源，资源之间只通过 ID 相互引用
type Arena struct {
	order []string
	items map[string]Resource
}

// NewArena 创建空表
func NewArena() *Arena {
	return &Arena{items: make(map[string]Resource)}
}

// Put 保存资源，重复 ID 覆盖旧值但保持原位置
func (a *Arena) Put(res Resource) {
	id := res.ID()
	if _, ok := a.items[id]; !ok {
		a.order = append(a.order, id)
	}
	a.items[id] = res
}

// Get 按 ID 读取
func (a *Arena) Get(id string) (Resource, bool) {
	res, ok := a.items[id]
	return res, ok
}

// Remove 删除资源
func (a *Arena) Remove(id string) {
	if _, ok := a.items[id]; !ok {
		return
	}
	delete(a.items, id)
	for i, v := range a.order {
		if v == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// IDs 按插入顺序返回所有 ID
func (a *Arena) IDs() []string {
	return append([]string(nil), a.order...)
}

// Len 资源数量
func (a *Arena) Len() int {
	return len(a.order)
}

// Reset 清空
func (a *Arena) Reset() {
	a.order = nil
	a.items = make(map[string]Resource)
}
