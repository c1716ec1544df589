package resource

import (
	"strings"
)

// PartKind 骨架片段类型
type PartKind int

const (
	// PartLiteral 原样输出的文本
	PartLiteral PartKind = iota
	// PartContent 所属资源的内容占位
	PartContent
	// PartValue 所属资源的属性值占位
	PartValue
	// PartReference 引用另一个资源
	PartReference
)

// SelfID 指向所属资源自身的占位 ID
const SelfID = "$self$"

// SkeletonPart 骨架片段
type SkeletonPart struct {
	Kind PartKind
	// Data 文本片段的内容
	Data string
	// RefID 引用目标资源的 ID
	RefID string
	// Property 值占位或属性引用的属性名
	Property string
	// Locale 为空表示输出语言
	Locale LocaleID
}

// String 以引用标记形式表示占位
func (p *SkeletonPart) String() string {
	switch p.Kind {
	case PartContent:
		return MakeRefMarker(SelfID)
	case PartValue:
		return MakeRefMarkerWithProperty(SelfID, p.Property)
	case PartReference:
		if p.Property != "" {
			return MakeRefMarkerWithProperty(p.RefID, p.Property)
		}
		return MakeRefMarker(p.RefID)
	default:
		return p.Data
	}
}

// Skeleton 资源的非翻译部分：原文中除可翻译文本之外的字节
type Skeleton struct {
	parts []*SkeletonPart
}

// NewSkeleton 创建骨架，可选初始文本
func NewSkeleton(data ...string) *Skeleton {
	s := &Skeleton{}
	for _, d := range data {
		s.Add(d)
	}
	return s
}

// Add 新增一个文本片段
func (s *Skeleton) Add(data string) {
	if data == "" {
		return
	}
	s.parts = append(s.parts, &SkeletonPart{Kind: PartLiteral, Data: data})
}

// Append 追加文本，末尾是文本片段时直接合并
func (s *Skeleton) Append(data string) {
	if data == "" {
		return
	}
	if n := len(s.parts); n > 0 && s.parts[n-1].Kind == PartLiteral {
		s.parts[n-1].Data += data
		return
	}
	s.Add(data)
}

// AddContentPlaceholder 插入所属资源内容的占位
func (s *Skeleton) AddContentPlaceholder(locale LocaleID) {
	s.parts = append(s.parts, &SkeletonPart{Kind: PartContent, RefID: SelfID, Locale: locale})
}

// AddValuePlaceholder 插入所属资源属性值的占位
func (s *Skeleton) AddValuePlaceholder(property string, locale LocaleID) {
	s.parts = append(s.parts, &SkeletonPart{Kind: PartValue, RefID: SelfID, Property: property, Locale: locale})
}

// AddReference 插入对其它资源的引用，property 为空时引用整个资源
func (s *Skeleton) AddReference(id, property string) {
	s.parts = append(s.parts, &SkeletonPart{Kind: PartReference, RefID: id, Property: property})
}

// AddSkeleton 追加另一个骨架的所有片段
func (s *Skeleton) AddSkeleton(other *Skeleton) {
	if other == nil {
		return
	}
	for _, p := range other.parts {
		cp := *p
		s.parts = append(s.parts, &cp)
	}
}

// Parts 返回所有片段
func (s *Skeleton) Parts() []*SkeletonPart {
	return s.parts
}

// LastPart 最后一个片段
func (s *Skeleton) LastPart() *SkeletonPart {
	if len(s.parts) == 0 {
		return nil
	}
	return s.parts[len(s.parts)-1]
}

// IsEmpty 是否没有片段，ignoreWhitespace 为 true 时只含空白的文本也算空
func (s *Skeleton) IsEmpty(ignoreWhitespace bool) bool {
	for _, p := range s.parts {
		if p.Kind != PartLiteral {
			return false
		}
		if !ignoreWhitespace || strings.TrimSpace(p.Data) != "" {
			return false
		}
	}
	return true
}

// String 文本化表示，占位显示为引用标记
func (s *Skeleton) String() string {
	var sb strings.Builder
	for _, p := range s.parts {
		sb.WriteString(p.String())
	}
	return sb.String()
}

// Clone 复制
func (s *Skeleton) Clone() *Skeleton {
	cp := &Skeleton{}
	cp.AddSkeleton(s)
	return cp
}
