package html

// 行内元素，在文本单元中作为代码
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "acronym": true, "b": true, "bdi": true, "bdo": true, "big": true,
	"br": true, "cite": true, "code": true, "del": true, "dfn": true, "em": true, "font": true,
	"i": true, "img": true, "ins": true, "kbd": true, "label": true, "mark": true, "q": true,
	"s": true, "samp": true, "small": true, "span": true, "strike": true, "strong": true,
	"sub": true, "sup": true, "time": true, "tt": true, "u": true, "var": true, "wbr": true,
}

// 没有结束标签的行内元素
var voidInlineElements = map[string]bool{
	"br": true, "img": true, "wbr": true,
}

// 作为分组的块级容器
var groupElements = map[string]bool{
	"ul": true, "ol": true, "dl": true, "table": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "div": true, "section": true, "article": true, "nav": true, "header": true,
	"footer": true, "aside": true, "main": true, "form": true, "blockquote": true, "figure": true,
	"select": true,
}

// 内容不抽取的元素
var rawElements = map[string]bool{
	"script": true, "style": true,
}
