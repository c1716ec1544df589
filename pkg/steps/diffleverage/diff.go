// Package diffleverage 把旧文档的译文按差异对齐复制到新文档
package diffleverage

// Match 一对匹配项在两个列表中的位置
type Match struct {
	Old int
	New int
}

// Diff 计算两个列表的最长公共子序列，返回按位置递增的匹配对
//
// equal 不要求满足传递性，模糊比较同样适用。
// 使用 Hirschberg 分治：时间 O(n·m)，额外空间 O(m)。
func Diff[T any](oldItems, newItems []T, equal func(a, b T) bool) []Match {
	n, m := len(oldItems), len(newItems)
	if n == 0 || m == 0 {
		return nil
	}
	d := &differ[T]{old: oldItems, new: newItems, equal: equal}
	return d.lcs(0, n, 0, m, make([]Match, 0, min(n, m)))
}

type differ[T any] struct {
	old, new []T
	equal    func(a, b T) bool
}

// lcs 把 old[i0:i1] 与 new[j0:j1] 的公共子序列追加到 out
func (d *differ[T]) lcs(i0, i1, j0, j1 int, out []Match) []Match {
	if i0 >= i1 || j0 >= j1 {
		return out
	}
	if i1-i0 == 1 {
		for j := j0; j < j1; j++ {
			if d.equal(d.old[i0], d.new[j]) {
				return append(out, Match{Old: i0, New: j})
			}
		}
		return out
	}

	mid := (i0 + i1) / 2
	front := d.forward(i0, mid, j0, j1)
	back := d.backward(mid, i1, j0, j1)
	best, split := -1, j0
	for k := range front {
		if s := front[k] + back[k]; s > best {
			best, split = s, j0+k
		}
	}
	out = d.lcs(i0, mid, j0, split, out)
	return d.lcs(mid, i1, split, j1, out)
}

// forward 返回 row，row[k] 为 old[i0:i1] 与 new[j0:j0+k] 的公共子序列长度
func (d *differ[T]) forward(i0, i1, j0, j1 int) []int {
	prev := make([]int, j1-j0+1)
	cur := make([]int, j1-j0+1)
	for i := i0; i < i1; i++ {
		cur[0] = 0
		for j := j0; j < j1; j++ {
			k := j - j0 + 1
			if d.equal(d.old[i], d.new[j]) {
				cur[k] = prev[k-1] + 1
			} else {
				cur[k] = max(prev[k], cur[k-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev
}

// backward 返回 row，row[k] 为 old[i0:i1] 与 new[j0+k:j1] 的公共子序列长度
func (d *differ[T]) backward(i0, i1, j0, j1 int) []int {
	w := j1 - j0
	prev := make([]int, w+1)
	cur := make([]int, w+1)
	for i := i1 - 1; i >= i0; i-- {
		cur[w] = 0
		for j := j1 - 1; j >= j0; j-- {
			k := j - j0
			if d.equal(d.old[i], d.new[j]) {
				cur[k] = prev[k+1] + 1
			} else {
				cur[k] = max(prev[k], cur[k+1])
			}
		}
		prev, cur = cur, prev
	}
	return prev
}
