package encoder

import (
	"fmt"
	"strings"
	"sync"
)

// Manager 按 MIME 类型管理编码器
type Manager struct {
	mu       sync.RWMutex
	encoders map[string]Encoder
	fallback Encoder
	mimeType string
}

// NewManager 创建编码器管理器，预置纯文本、HTML、XML 与 Markdown 编码器
func NewManager() *Manager {
	m := &Manager{
		encoders: make(map[string]Encoder),
		fallback: NewDefaultEncoder(),
	}
	m.encoders[MimeTypePlainText] = NewDefaultEncoder()
	m.encoders[MimeTypeMarkdown] = NewDefaultEncoder()
	m.encoders[MimeTypeHTML] = NewHTMLEncoder()
	m.encoders[MimeTypeXML] = NewXMLEncoder()
	m.encoders[MimeTypeTMX] = NewXMLEncoder()
	return m
}

// SetMapping 注册某个 MIME 类型对应的编码器
func (m *Manager) SetMapping(mimeType string, enc Encoder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.encoders[normalizeMime(mimeType)] = enc
}

// SetDefaultMimeType 设置当前文档的默认 MIME 类型
func (m *Manager) SetDefaultMimeType(mimeType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mimeType = normalizeMime(mimeType)
}

// Encoder 返回指定 MIME 类型的编码器，空字符串表示当前默认类型
func (m *Manager) Encoder(mimeType string) Encoder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mimeType == "" {
		mimeType = m.mimeType
	}
	if enc, ok := m.encoders[normalizeMime(mimeType)]; ok {
		return enc
	}
	return m.fallback
}

// SetOptions 把选项应用到所有编码器
func (m *Manager) SetOptions(opts Options) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, enc := range m.encoders {
		enc.SetOptions(opts)
	}
	m.fallback.SetOptions(opts)
}

// SetCharset 为所有编码器设置输出字符集
func (m *Manager) SetCharset(name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for mime, enc := range m.encoders {
		if err := enc.SetCharset(name); err != nil {
			return fmt.Errorf("encoder for %s: %w", mime, err)
		}
	}
	return nil
}

// Encode 使用默认 MIME 类型的编码器转义
func (m *Manager) Encode(text string, ctx Context) string {
	return m.Encoder("").Encode(text, ctx)
}

func normalizeMime(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}
