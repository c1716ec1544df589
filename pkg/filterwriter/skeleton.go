package filterwriter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/encoder"
	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// FallbackPolicy 没有目标语言译文时的处理方式
type FallbackPolicy int

const (
	// FallbackSource 输出源文
	FallbackSource FallbackPolicy = iota
	// FallbackEmpty 输出空内容，骨架照常输出
	FallbackEmpty
	// FallbackSkip 整个文本单元连同骨架都不输出
	FallbackSkip
)

// ParseFallbackPolicy 解析配置中的策略名
func ParseFallbackPolicy(name string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "source":
		return FallbackSource, nil
	case "empty":
		return FallbackEmpty, nil
	case "skip":
		return FallbackSkip, nil
	default:
		return FallbackSource, errs.BadParameters("ParseFallbackPolicy", "unknown fallback policy "+name, nil)
	}
}

// maxReferenceDepth 引用嵌套的最大深度，超过视为循环引用
const maxReferenceDepth = 32

// SkeletonOption 骨架写出器选项
type SkeletonOption func(*GenericSkeletonWriter)

// WithFallback 设置缺少译文时的策略
func WithFallback(p FallbackPolicy) SkeletonOption {
	return func(w *GenericSkeletonWriter) {
		w.fallback = p
	}
}

// WithSkeletonLogger 设置日志
func WithSkeletonLogger(logger *zap.Logger) SkeletonOption {
	return func(w *GenericSkeletonWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// GenericSkeletonWriter 解析骨架中的占位与引用，输出文档文本
//
// 被标记为引用目标的资源保存在 referents 中，出现时不输出，
// 只在其它骨架引用它时输出。引用尚未出现的资源返回 ErrUnknownReference。
type GenericSkeletonWriter struct {
	outputLoc resource.LocaleID
	encoding  string
	encoders  *encoder.Manager
	referents *resource.Arena
	fallback  FallbackPolicy
	logger    *zap.Logger
	depth     int
}

// NewGenericSkeletonWriter 创建骨架写出器
func NewGenericSkeletonWriter(opts ...SkeletonOption) *GenericSkeletonWriter {
	w := &GenericSkeletonWriter{
		referents: resource.NewArena(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetFallback 设置缺少译文时的策略
func (w *GenericSkeletonWriter) SetFallback(p FallbackPolicy) {
	w.fallback = p
}

// ProcessStartDocument 初始化输出参数并输出文档头部
func (w *GenericSkeletonWriter) ProcessStartDocument(outputLocale resource.LocaleID, outputEncoding string,
	encoders *encoder.Manager, sd *resource.StartDocument) (string, error) {
	w.outputLoc = outputLocale
	w.encoding = outputEncoding
	w.referents.Reset()
	w.depth = 0

	w.encoders = encoders
	if w.encoders == nil {
		w.encoders = sd.Encoders
	}
	if w.encoders == nil {
		w.encoders = encoder.NewManager()
	}
	if mime := sd.MimeType(); mime != "" {
		w.encoders.SetDefaultMimeType(mime)
	}
	if outputEncoding != "" {
		if err := w.encoders.SetCharset(outputEncoding); err != nil {
			return "", errs.BadParameters("ProcessStartDocument", "output encoding", err)
		}
	}
	return w.process(sd)
}

// ProcessEndDocument 输出文档尾部
func (w *GenericSkeletonWriter) ProcessEndDocument(ending *resource.Ending) (string, error) {
	return w.process(ending)
}

// ProcessStartSubDocument 输出子文档头部
func (w *GenericSkeletonWriter) ProcessStartSubDocument(ssd *resource.StartSubDocument) (string, error) {
	return w.process(ssd)
}

// ProcessEndSubDocument 输出子文档尾部
func (w *GenericSkeletonWriter) ProcessEndSubDocument(ending *resource.Ending) (string, error) {
	return w.process(ending)
}

// ProcessStartGroup 输出分组开始
func (w *GenericSkeletonWriter) ProcessStartGroup(sg *resource.StartGroup) (string, error) {
	return w.process(sg)
}

// ProcessEndGroup 输出分组结束
func (w *GenericSkeletonWriter) ProcessEndGroup(ending *resource.Ending) (string, error) {
	return w.process(ending)
}

// ProcessTextUnit 输出文本单元
func (w *GenericSkeletonWriter) ProcessTextUnit(tu *resource.TextUnit) (string, error) {
	if tu.IsReferent() {
		w.referents.Put(tu)
		return "", nil
	}
	return w.textUnit(tu)
}

// ProcessDocumentPart 输出文档片段
func (w *GenericSkeletonWriter) ProcessDocumentPart(dp *resource.DocumentPart) (string, error) {
	return w.process(dp)
}

// Close 释放引用表
func (w *GenericSkeletonWriter) Close() {
	w.referents.Reset()
}

// process 非文本单元资源的通用处理
func (w *GenericSkeletonWriter) process(res resource.Resource) (string, error) {
	if res.IsReferent() {
		w.referents.Put(res)
		return "", nil
	}
	return w.render(res)
}

// render 按顺序解析骨架片段
func (w *GenericSkeletonWriter) render(res resource.Resource) (string, error) {
	skel := res.Skeleton()
	if skel == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range skel.Parts() {
		out, err := w.part(res, part)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func (w *GenericSkeletonWriter) part(owner resource.Resource, part *resource.SkeletonPart) (string, error) {
	switch part.Kind {
	case resource.PartLiteral:
		return w.encoder().Encode(part.Data, encoder.ContextSkeleton), nil
	case resource.PartContent:
		tu, ok := owner.(*resource.TextUnit)
		if !ok {
			return "", errs.IllegalState("GenericSkeletonWriter", "content placeholder outside a text unit: "+owner.ID())
		}
		return w.content(tu, part.Locale)
	case resource.PartValue:
		return w.value(owner, part.Property, part.Locale), nil
	case resource.PartReference:
		return w.reference(part.RefID, part.Property)
	default:
		return "", nil
	}
}

func (w *GenericSkeletonWriter) encoder() encoder.Encoder {
	if w.encoders == nil {
		w.encoders = encoder.NewManager()
	}
	return w.encoders.Encoder("")
}

// textUnit 输出文本单元，没有骨架时只输出内容
func (w *GenericSkeletonWriter) textUnit(tu *resource.TextUnit) (string, error) {
	if w.fallback == FallbackSkip && w.needsTarget(tu) && !tu.HasTarget(w.outputLoc) {
		return "", nil
	}
	if tu.Skeleton() == nil {
		return w.content(tu, resource.LocaleEmpty)
	}
	return w.render(tu)
}

func (w *GenericSkeletonWriter) needsTarget(tu *resource.TextUnit) bool {
	return tu.IsTranslatable() && !w.outputLoc.IsEmpty()
}

// content 选择源文或译文并输出
func (w *GenericSkeletonWriter) content(tu *resource.TextUnit, locale resource.LocaleID) (string, error) {
	ctx := encoder.ContextText
	if tu.Type() == resource.TypeAttribute {
		ctx = encoder.ContextAttribute
	}

	var tc *resource.TextContainer
	switch {
	case !locale.IsEmpty():
		// 骨架指定了语言，例如双语文件中的源文部分
		tc = tu.Target(locale)
		if tc == nil {
			tc = tu.Source()
		}
	case !w.needsTarget(tu):
		tc = tu.Source()
	default:
		tc = tu.Target(w.outputLoc)
		if tc == nil {
			switch w.fallback {
			case FallbackEmpty, FallbackSkip:
				return "", nil
			default:
				tc = tu.Source()
			}
		}
	}

	var sb strings.Builder
	for _, part := range tc.Parts() {
		out, err := w.fragment(part.Content, ctx)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

// fragment 转义文本并还原代码，代码数据中的引用会被解析
func (w *GenericSkeletonWriter) fragment(tf *resource.TextFragment, ctx encoder.Context) (string, error) {
	enc := w.encoder()
	var sb, run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			sb.WriteString(enc.Encode(run.String(), ctx))
			run.Reset()
		}
	}
	coded := []rune(tf.CodedText())
	for i := 0; i < len(coded); i++ {
		r := coded[i]
		if !resource.IsMarker(r) || i+1 >= len(coded) {
			run.WriteRune(r)
			continue
		}
		i++
		code := tf.Code(resource.CharToIndex(coded[i]))
		if code == nil {
			continue
		}
		flush()
		if code.HasReference() {
			data, err := w.expandReferences(code.Data)
			if err != nil {
				return "", err
			}
			sb.WriteString(data)
		} else {
			sb.WriteString(code.Data)
		}
	}
	flush()
	return sb.String(), nil
}

// expandReferences 把文本中的引用标记替换为被引用资源的输出
func (w *GenericSkeletonWriter) expandReferences(text string) (string, error) {
	var sb strings.Builder
	pos := 0
	for {
		m, ok := resource.FindRefMarker(text, pos)
		if !ok {
			break
		}
		sb.WriteString(text[pos:m.Start])
		pos = m.End
		if m.IsEscape() {
			sb.WriteString(resource.RefMarkerPrefix)
			continue
		}
		out, err := w.reference(m.ID, m.Property)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	sb.WriteString(text[pos:])
	return sb.String(), nil
}

// reference 输出被引用的资源或其属性
func (w *GenericSkeletonWriter) reference(id, property string) (string, error) {
	res, ok := w.referents.Get(id)
	if !ok {
		return "", errs.UnknownReference("GenericSkeletonWriter", id)
	}
	if property != "" {
		return w.value(res, property, resource.LocaleEmpty), nil
	}
	if w.depth >= maxReferenceDepth {
		return "", errs.IllegalState("GenericSkeletonWriter", "reference nesting too deep at "+id)
	}
	w.depth++
	defer func() { w.depth-- }()

	if tu, ok := res.(*resource.TextUnit); ok {
		return w.textUnit(tu)
	}
	return w.render(res)
}

// value 读取属性值，文本单元优先使用目标语言容器上的属性
func (w *GenericSkeletonWriter) value(owner resource.Resource, name string, locale resource.LocaleID) string {
	if tu, ok := owner.(*resource.TextUnit); ok {
		loc := locale
		if loc.IsEmpty() {
			loc = w.outputLoc
		}
		if tc := tu.Target(loc); tc != nil {
			if prop, ok := tc.Properties.Get(name); ok {
				return prop.Value
			}
		}
	}
	if prop, ok := owner.Property(name); ok {
		return prop.Value
	}
	w.logger.Debug("属性不存在", zap.String("resource", owner.ID()), zap.String("property", name))
	return ""
}
