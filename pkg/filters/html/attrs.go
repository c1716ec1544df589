package html

import "strings"

const asciiSpace = " \t\n\r\f"

// attrSpan 属性值在原始标签中的字节区间，不含引号
type attrSpan struct {
	name         string
	start, end   int
	doubleQuoted bool
}

// scanAttributes 扫描原始开始标签，返回每个有值的属性及其位置
func scanAttributes(raw string) []attrSpan {
	var spans []attrSpan
	n := len(raw)
	i := 1 // 跳过 '<'
	for i < n && !isTagSpace(raw[i]) && raw[i] != '>' && raw[i] != '/' {
		i++
	}
	for i < n {
		for i < n && (isTagSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= n || raw[i] == '>' {
			break
		}
		nameStart := i
		for i < n && !isTagSpace(raw[i]) && raw[i] != '=' && raw[i] != '>' && raw[i] != '/' {
			i++
		}
		name := strings.ToLower(raw[nameStart:i])
		j := skipSpace(raw, i)
		if j >= n || raw[j] != '=' {
			// 没有值的属性
			if i == nameStart {
				i++
			}
			continue
		}
		j = skipSpace(raw, j+1)
		if j >= n {
			break
		}
		switch q := raw[j]; q {
		case '"', '\'':
			end := strings.IndexByte(raw[j+1:], q)
			if end < 0 {
				return spans
			}
			spans = append(spans, attrSpan{name: name, start: j + 1, end: j + 1 + end, doubleQuoted: q == '"'})
			i = j + 1 + end + 1
		default:
			k := j
			for k < n && !isTagSpace(raw[k]) && raw[k] != '>' {
				k++
			}
			spans = append(spans, attrSpan{name: name, start: j, end: k})
			i = k
		}
	}
	return spans
}

func isTagSpace(c byte) bool {
	return strings.IndexByte(asciiSpace, c) >= 0
}

func skipSpace(s string, i int) int {
	for i < len(s) && isTagSpace(s[i]) {
		i++
	}
	return i
}
