// Package filter 定义过滤器契约，并提供事件队列、取消与输入解码等公共实现
package filter

import (
	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
	"github.com/nerdneilsfield/go-okapi/pkg/params"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Filter 把原始文档分解为事件序列
//
// 典型用法：
//
//	if err := f.Open(doc, true); err != nil { ... }
//	defer f.Close()
//	for f.HasNext() {
//		ev, err := f.Next()
//		...
//	}
//
// Cancel 可以在其它 goroutine 中调用，其余方法只能在同一个 goroutine 中使用。
type Filter interface {
	// Name 过滤器标识，例如 okf_plaintext
	Name() string
	DisplayName() string
	MimeType() string

	Parameters() params.Parameters
	SetParameters(p params.Parameters) error
	// Configurations 该过滤器预置的配置
	Configurations() []Configuration

	// Open 打开输入并重置所有内部状态，同一实例可以反复使用
	Open(doc *resource.RawDocument, generateSkeleton bool) error
	HasNext() bool
	// Next 返回下一个事件，HasNext 为 false 时调用返回 ErrIllegalState
	Next() (*event.Event, error)
	// Close 释放输入，部分消费的流也可以关闭
	Close() error
	// Cancel 请求取消，下一个事件为 CANCELED
	Cancel()

	CreateSkeletonWriter() resource.SkeletonWriter
	CreateFilterWriter() filterwriter.Writer
	EncoderManager() *encoder.Manager
}

// Configuration 过滤器的一个预置配置
type Configuration struct {
	ID          string   `toml:"id" yaml:"id"`
	FilterName  string   `toml:"filter" yaml:"filter"`
	Name        string   `toml:"name" yaml:"name"`
	Description string   `toml:"description" yaml:"description"`
	MimeType    string   `toml:"mime_type" yaml:"mime_type"`
	Extensions  []string `toml:"extensions" yaml:"extensions"`
	// Parameters name=value 格式的参数，空表示默认值
	Parameters string `toml:"parameters" yaml:"parameters"`
	// Custom 从配置目录加载的自定义配置
	Custom bool `toml:"-" yaml:"-"`
}

// Apply 把配置的参数加载到过滤器
func (c Configuration) Apply(f Filter) error {
	p := f.Parameters()
	if p == nil {
		return nil
	}
	p.Reset()
	if c.Parameters == "" {
		return f.SetParameters(p)
	}
	if err := p.FromString(c.Parameters); err != nil {
		return err
	}
	return f.SetParameters(p)
}
