package diffleverage

import (
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Comparator 比较两个文本单元的源文，返回 0 到 100 的分数以及是否视为匹配
type Comparator interface {
	Compare(oldTU, newTU *resource.TextUnit) (int, bool)
}

// ExactComparator 源文完全相同才匹配
type ExactComparator struct {
	CodeSensitive bool
}

// Compare 比较源文
func (c ExactComparator) Compare(oldTU, newTU *resource.TextUnit) (int, bool) {
	if oldTU.Source().Unsegmented().Equals(newTU.Source().Unsegmented(), c.CodeSensitive) {
		return 100, true
	}
	return 0, false
}

// FuzzyComparator 相似度不低于阈值即匹配
type FuzzyComparator struct {
	CodeSensitive bool
	Threshold     int
}

// Compare 按编辑距离计算相似度
func (c FuzzyComparator) Compare(oldTU, newTU *resource.TextUnit) (int, bool) {
	score := Similarity(compareText(oldTU, c.CodeSensitive), compareText(newTU, c.CodeSensitive))
	return score, score >= c.Threshold
}

// NewComparator 阈值不低于 100 时使用精确比较
func NewComparator(codeSensitive bool, threshold int) Comparator {
	if threshold >= 100 {
		return ExactComparator{CodeSensitive: codeSensitive}
	}
	return FuzzyComparator{CodeSensitive: codeSensitive, Threshold: threshold}
}

func compareText(tu *resource.TextUnit, codeSensitive bool) string {
	tf := tu.Source().Unsegmented()
	if codeSensitive {
		return tf.CodedText()
	}
	return tf.Text()
}

// Similarity 基于编辑距离的相似度，取值 0 到 100
func Similarity(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longest := max(la, lb)
	d := fuzzy.LevenshteinDistance(a, b)
	return 100 * (longest - d) / longest
}
