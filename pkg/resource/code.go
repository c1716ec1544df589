package resource

import "fmt"

// TagType 内联代码的标记类型
type TagType int

const (
	// TagOpening 成对代码的开始部分
	TagOpening TagType = iota
	// TagClosing 成对代码的结束部分
	TagClosing
	// TagPlaceholder 独立代码
	TagPlaceholder
)

// String 返回类型名
func (t TagType) String() string {
	switch t {
	case TagOpening:
		return "OPENING"
	case TagClosing:
		return "CLOSING"
	case TagPlaceholder:
		return "PLACEHOLDER"
	default:
		return fmt.Sprintf("TagType(%d)", int(t))
	}
}

// 编码文本中保留的标记字符
const (
	MarkerOpening  rune = '\uE101'
	MarkerClosing  rune = '\uE102'
	MarkerIsolated rune = '\uE103'
	// charBase 代码索引字符的起始值
	charBase rune = '\uE110'
)

// 常用代码类型
const (
	CodeTypeBold      = "bold"
	CodeTypeItalic    = "italic"
	CodeTypeUnderline = "underlined"
	CodeTypeLink      = "link"
	CodeTypeImage     = "image"
	CodeTypeLineBreak = "lb"
	CodeTypeEntity    = "entity"
	CodeTypeNull      = "null"
)

// CodeFlag 代码标志位
type CodeFlag uint8

const (
	// FlagHasRef 数据中包含引用标记，写出时需要解析
	FlagHasRef CodeFlag = 1 << iota
	// FlagCloneable 允许在译文中复制
	FlagCloneable
	// FlagDeleteable 允许在译文中删除
	FlagDeleteable
	// FlagTranslatable 代码数据本身含有可翻译内容
	FlagTranslatable
)

// Code 内联代码，保存被替换掉的原始标记
type Code struct {
	// ID 相同 ID 的开始与结束代码组成一对
	ID      int
	TagType TagType
	// Type 代码语义类型，例如 "bold"
	Type string
	// Data 原始标记文本
	Data string
	// OuterData 可选的外层数据，导出为其它格式时使用
	OuterData string
	Flags     CodeFlag
}

// NewCode 创建代码
func NewCode(tagType TagType, typ, data string) *Code {
	return &Code{TagType: tagType, Type: typ, Data: data}
}

// HasFlag 是否设置了标志
func (c *Code) HasFlag(f CodeFlag) bool {
	return c.Flags&f != 0
}

// SetFlag 设置或清除标志
func (c *Code) SetFlag(f CodeFlag, on bool) {
	if on {
		c.Flags |= f
	} else {
		c.Flags &^= f
	}
}

// HasReference 数据中是否包含引用
func (c *Code) HasReference() bool {
	return c.HasFlag(FlagHasRef)
}

// Clone 复制代码
func (c *Code) Clone() *Code {
	cp := *c
	return &cp
}

// String 返回原始数据
func (c *Code) String() string {
	return c.Data
}

// marker 返回代码对应的标记字符
func (c *Code) marker() rune {
	switch c.TagType {
	case TagOpening:
		return MarkerOpening
	case TagClosing:
		return MarkerClosing
	default:
		return MarkerIsolated
	}
}

// IndexToChar 把代码索引转换为编码文本中的索引字符
func IndexToChar(index int) rune {
	return charBase + rune(index)
}

// CharToIndex 把索引字符还原为代码索引
func CharToIndex(r rune) int {
	return int(r - charBase)
}

// IsMarker 是否为代码标记字符
func IsMarker(r rune) bool {
	return r == MarkerOpening || r == MarkerClosing || r == MarkerIsolated
}
