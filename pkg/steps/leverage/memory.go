// Package leverage 从翻译记忆库复用译文，并把已翻译的文本单元导入记忆库
package leverage

import (
	"context"

	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Query 一次查询
type Query struct {
	Source       *resource.TextFragment
	SourceLocale resource.LocaleID
	TargetLocale resource.LocaleID
	// Threshold 最低分数，0..100
	Threshold int
	// Limit 最多返回的候选数，0 表示不限
	Limit int
}

// Candidate 记忆库返回的候选译文
type Candidate struct {
	Source *resource.TextFragment
	Target *resource.TextFragment
	Score  int
	Type   resource.MatchType
	Origin string
}

// Memory 可查询的翻译记忆库，候选按分数从高到低返回
type Memory interface {
	Lookup(ctx context.Context, q Query) ([]Candidate, error)
}

// Sink 可写入的翻译记忆库
type Sink interface {
	Store(ctx context.Context, source, target *resource.TextFragment, srcLoc, trgLoc resource.LocaleID, origin string) error
}
