// Package segmentation 按断句规则把文本容器切分为句段
package segmentation

import (
	"fmt"
	"os"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
)

// Rule 一条断句规则：Before 匹配断点之前的文本，After 匹配断点之后的文本
type Rule struct {
	Break  bool   `yaml:"break"`
	Before string `yaml:"before"`
	After  string `yaml:"after"`
}

// Rules 有序的规则集，先匹配的规则决定断点
type Rules struct {
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"rules"`
}

// 代码标记（私用区字符）可以出现在句首
const (
	sentenceEnd   = `[.?!]+[)"'”’»]*`
	sentenceStart = `\s+(?:\p{Co}\p{Co})*["'“‘«(\[]?(?:\p{Co}\p{Co})*[\p{Lu}\p{N}]`
)

// DefaultRules 英文默认规则：常见缩写后不断句，句末标点后接大写字母时断句
func DefaultRules() *Rules {
	return &Rules{
		Name: "default",
		Rules: []Rule{
			{Break: false, Before: `\b(?:Mr|Mrs|Ms|Dr|Prof|Sr|Jr|St|Mt|vs|etc|No|Fig|Inc|Ltd|Co|e\.g|i\.e)\.`, After: `\s`},
			{Break: false, Before: `\b\p{Lu}\.`, After: `\s`},
			{Break: true, Before: sentenceEnd, After: sentenceStart},
			{Break: true, Before: `[。！？]`, After: ``},
		},
	}
}

// LoadRules 从 YAML 文件读取规则集
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("segmentation.LoadRules", err)
	}
	rules := &Rules{}
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, errs.BadInput("segmentation.LoadRules", "malformed rules file "+path, err)
	}
	if rules.Name == "" {
		rules.Name = path
	}
	return rules, nil
}

// compiled 编译后的规则，模式匹配前后两侧之间的空位置
type compiled struct {
	brk bool
	re  *regexp2.Regexp
}

func (r *Rules) compile() ([]compiled, error) {
	if len(r.Rules) == 0 {
		return nil, errs.BadParameters("segmentation.Rules", "rule set "+r.Name+" is empty", nil)
	}
	out := make([]compiled, 0, len(r.Rules))
	for i, rule := range r.Rules {
		if rule.Before == "" && rule.After == "" {
			return nil, errs.BadParameters("segmentation.Rules", fmt.Sprintf("rule %d has no pattern", i), nil)
		}
		pattern := ""
		if rule.Before != "" {
			pattern += "(?<=" + rule.Before + ")"
		}
		if rule.After != "" {
			pattern += "(?=" + rule.After + ")"
		}
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, errs.BadParameters("segmentation.Rules", fmt.Sprintf("rule %d: invalid pattern", i), err)
		}
		out = append(out, compiled{brk: rule.Break, re: re})
	}
	return out, nil
}
