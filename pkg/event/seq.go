package event

import "iter"

// Seq 惰性事件序列，出错时产出 (nil, err) 并结束
type Seq = iter.Seq2[*Event, error]

// Of 由给定事件组成的序列
func Of(events ...*Event) Seq {
	return func(yield func(*Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Empty 空序列
func Empty() Seq {
	return func(func(*Event, error) bool) {}
}

// Fail 只产出一个错误的序列
func Fail(err error) Seq {
	return func(yield func(*Event, error) bool) {
		yield(nil, err)
	}
}

// Collect 读完序列，遇到第一个错误即返回
func Collect(seq Seq) ([]*Event, error) {
	var out []*Event
	for ev, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// Flatten 把多事件展开为普通事件，PropagateAsSingle 的多事件同样展开
func Flatten(events []*Event) []*Event {
	var out []*Event
	for _, ev := range events {
		if m := ev.Multi(); m != nil {
			out = append(out, Flatten(m.Events)...)
			continue
		}
		out = append(out, ev)
	}
	return out
}
