package resource

import "sort"

// Property 资源属性，例如 HTML 的 lang 或文档编码
type Property struct {
	Name  string
	Value string
	// ReadOnly 只读属性不会被写出器替换
	ReadOnly bool
}

// Properties 属性集合
type Properties map[string]*Property

// Set 设置属性
func (p *Properties) Set(name, value string, readOnly bool) {
	if *p == nil {
		*p = make(Properties)
	}
	(*p)[name] = &Property{Name: name, Value: value, ReadOnly: readOnly}
}

// Get 读取属性
func (p Properties) Get(name string) (*Property, bool) {
	prop, ok := p[name]
	return prop, ok
}

// Value 读取属性值，不存在时返回空串
func (p Properties) Value(name string) string {
	if prop, ok := p[name]; ok {
		return prop.Value
	}
	return ""
}

// Names 按名称排序返回
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone 复制
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	cp := make(Properties, len(p))
	for k, v := range p {
		prop := *v
		cp[k] = &prop
	}
	return cp
}

// Annotation 类型化注解，仅限本包定义的几种
type Annotation interface {
	annotationName() string
}

// MatchType 匹配类型
type MatchType int

const (
	MatchNone MatchType = iota
	MatchExact
	MatchFuzzy
)

// String 返回匹配类型名
func (m MatchType) String() string {
	switch m {
	case MatchExact:
		return "EXACT"
	case MatchFuzzy:
		return "FUZZY"
	default:
		return "NONE"
	}
}

// Score 单个匹配分数
type Score struct {
	Value  int
	Origin string
}

// ScoresAnnotation 每个分段的匹配分数
type ScoresAnnotation struct {
	Scores []Score
}

func (*ScoresAnnotation) annotationName() string { return "scores" }

// Add 追加分数
func (a *ScoresAnnotation) Add(value int, origin string) {
	a.Scores = append(a.Scores, Score{Value: value, Origin: origin})
}

// AltTranslation 候选译文
type AltTranslation struct {
	SourceLocale LocaleID
	TargetLocale LocaleID
	Source       *TextFragment
	Target       *TextFragment
	MatchType    MatchType
	Score        int
	Origin       string
}

// AltTranslationsAnnotation 候选译文列表，按分数从高到低排列
type AltTranslationsAnnotation struct {
	Items []*AltTranslation
}

func (*AltTranslationsAnnotation) annotationName() string { return "alt-translations" }

// Add 插入候选译文并保持排序
func (a *AltTranslationsAnnotation) Add(alt *AltTranslation) {
	a.Items = append(a.Items, alt)
	sort.SliceStable(a.Items, func(i, j int) bool {
		return a.Items[i].Score > a.Items[j].Score
	})
}

// Best 分数最高的候选
func (a *AltTranslationsAnnotation) Best() *AltTranslation {
	if a == nil || len(a.Items) == 0 {
		return nil
	}
	return a.Items[0]
}

// DiffLeverageAnnotation 标记译文来自旧文档的差异复用
type DiffLeverageAnnotation struct {
	CodeSensitive  bool
	FuzzyThreshold int
	// Score 匹配置信度，精确匹配为 100
	Score int
}

func (*DiffLeverageAnnotation) annotationName() string { return "diff-leverage" }

// SegmentationAnnotation 记录所用的分段规则
type SegmentationAnnotation struct {
	RulesName string
}

func (*SegmentationAnnotation) annotationName() string { return "segmentation" }

// Annotations 注解集合，每种注解最多一个
type Annotations struct {
	Scores          *ScoresAnnotation
	AltTranslations *AltTranslationsAnnotation
	DiffLeverage    *DiffLeverageAnnotation
	Segmentation    *SegmentationAnnotation
}

// SetAnnotation 按类型存放注解
func (a *Annotations) SetAnnotation(ann Annotation) {
	switch v := ann.(type) {
	case *ScoresAnnotation:
		a.Scores = v
	case *AltTranslationsAnnotation:
		a.AltTranslations = v
	case *DiffLeverageAnnotation:
		a.DiffLeverage = v
	case *SegmentationAnnotation:
		a.Segmentation = v
	}
}

// HasAnnotations 是否有任何注解
func (a *Annotations) HasAnnotations() bool {
	return a.Scores != nil || a.AltTranslations != nil || a.DiffLeverage != nil || a.Segmentation != nil
}

// Clone 复制注解集合，注解本身按值复制
func (a Annotations) Clone() Annotations {
	var cp Annotations
	if a.Scores != nil {
		s := *a.Scores
		s.Scores = append([]Score(nil), a.Scores.Scores...)
		cp.Scores = &s
	}
	if a.AltTranslations != nil {
		alts := &AltTranslationsAnnotation{}
		for _, it := range a.AltTranslations.Items {
			c := *it
			if it.Source != nil {
				c.Source = it.Source.Clone()
			}
			if it.Target != nil {
				c.Target = it.Target.Clone()
			}
			alts.Items = append(alts.Items, &c)
		}
		cp.AltTranslations = alts
	}
	if a.DiffLeverage != nil {
		d := *a.DiffLeverage
		cp.DiffLeverage = &d
	}
	if a.Segmentation != nil {
		s := *a.Segmentation
		cp.Segmentation = &s
	}
	return cp
}
