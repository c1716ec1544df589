package resource

import (
	"strings"

	"golang.org/x/text/language"
)

// LocaleID 规范化后的语言区域标识，例如 "en-us"
type LocaleID string

// LocaleEmpty 表示未指定语言
const LocaleEmpty LocaleID = ""

// NewLocaleID 解析并规范化 BCP-47 语言标签，无法解析时退化为小写原值
func NewLocaleID(code string) LocaleID {
	code = strings.TrimSpace(code)
	if code == "" {
		return LocaleEmpty
	}
	code = strings.ReplaceAll(code, "_", "-")
	tag, err := language.Parse(code)
	if err != nil {
		return LocaleID(strings.ToLower(code))
	}
	return LocaleID(strings.ToLower(tag.String()))
}

// String 返回标识字符串
func (l LocaleID) String() string {
	return string(l)
}

// IsEmpty 是否未指定
func (l LocaleID) IsEmpty() bool {
	return l == LocaleEmpty
}

// Language 返回主语言部分，例如 "en-us" 返回 "en"
func (l LocaleID) Language() string {
	if l.IsEmpty() {
		return ""
	}
	tag, err := language.Parse(string(l))
	if err != nil {
		if i := strings.IndexByte(string(l), '-'); i > 0 {
			return string(l[:i])
		}
		return string(l)
	}
	base, _ := tag.Base()
	return base.String()
}

// SameLanguageAs 主语言是否相同
func (l LocaleID) SameLanguageAs(other LocaleID) bool {
	return l.Language() == other.Language()
}

// Tag 返回 x/text 的语言标签
func (l LocaleID) Tag() language.Tag {
	tag, err := language.Parse(string(l))
	if err != nil {
		return language.Und
	}
	return tag
}
