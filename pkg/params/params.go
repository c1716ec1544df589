// Package params 提供组件参数的持久化，格式为扁平的 name=value 文本
package params

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/magiconair/properties"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

// Parameters 可配置组件的参数接口
type Parameters interface {
	// Reset 恢复默认值
	Reset()

	// FromString 从 name=value 文本加载，未出现的键保持默认值
	FromString(data string) error

	// String 序列化为 name=value 文本
	String() string
}

// Buffer name=value 参数缓冲区
type Buffer struct {
	props *properties.Properties
}

// NewBuffer 创建空缓冲区
func NewBuffer() *Buffer {
	props := properties.NewProperties()
	props.DisableExpansion = true
	return &Buffer{props: props}
}

// Reset 清空缓冲区
func (b *Buffer) Reset() {
	b.props = properties.NewProperties()
	b.props.DisableExpansion = true
}

// FromString 解析文本
func (b *Buffer) FromString(data string) error {
	props, err := properties.LoadString(data)
	if err != nil {
		return errs.BadParameters("params.FromString", "cannot parse parameters", err)
	}
	props.DisableExpansion = true
	b.props = props
	return nil
}

// String 输出文本，键按写入顺序排列
func (b *Buffer) String() string {
	var sb strings.Builder
	if _, err := b.props.Write(&sb, properties.UTF8); err != nil {
		return ""
	}
	return sb.String()
}

// Keys 返回所有键
func (b *Buffer) Keys() []string {
	return b.props.Keys()
}

// Lookup 读取原始值，ok 区分空值与缺失的键
func (b *Buffer) Lookup(name string) (value string, ok bool) {
	return b.props.Get(name)
}

// GetString 读取字符串
func (b *Buffer) GetString(name, def string) string {
	return b.props.GetString(name, def)
}

// GetBool 读取布尔值
func (b *Buffer) GetBool(name string, def bool) bool {
	return b.props.GetBool(name, def)
}

// GetInt 读取整数
func (b *Buffer) GetInt(name string, def int) int {
	v, ok := b.props.Get(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// SetString 写入字符串
func (b *Buffer) SetString(name, value string) {
	_, _, _ = b.props.Set(name, value)
}

// SetBool 写入布尔值
func (b *Buffer) SetBool(name string, value bool) {
	b.SetString(name, strconv.FormatBool(value))
}

// SetInt 写入整数
func (b *Buffer) SetInt(name string, value int) {
	b.SetString(name, strconv.Itoa(value))
}

// Load 从文件加载参数
func Load(p Parameters, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.IO("params.Load", err)
	}
	return p.FromString(string(data))
}

// Save 把参数写入文件
func Save(p Parameters, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errs.IO("params.Save", err)
		}
	}
	if err := os.WriteFile(path, []byte(p.String()), 0o644); err != nil {
		return errs.IO("params.Save", fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// Empty 没有任何参数的组件使用
type Empty struct{}

// Reset 无操作
func (Empty) Reset() {}

// FromString 忽略输入
func (Empty) FromString(string) error { return nil }

// String 返回空串
func (Empty) String() string { return "" }
