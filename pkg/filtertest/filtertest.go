// Package filtertest 过滤器测试工具：抽取、合并、往返比较与事件流校验
package filtertest

import (
	"bytes"
	"fmt"

	"github.com/nerdneilsfield/go-okapi/pkg/errs"
	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/filter"
	"github.com/nerdneilsfield/go-okapi/pkg/filterwriter"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Extract 打开文档并读出所有事件
func Extract(f filter.Filter, doc *resource.RawDocument) (events []*event.Event, err error) {
	if err := f.Open(doc, true); err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	for f.HasNext() {
		ev, err := f.Next()
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// CopySourceToTarget 把源文复制为目标语言译文，用于不翻译时的往返
func CopySourceToTarget(events []*event.Event, locale resource.LocaleID) {
	for _, ev := range events {
		switch ev.Type {
		case event.TextUnit:
			tu := ev.TextUnit()
			if tu.IsTranslatable() {
				tu.CreateTarget(locale, true)
			}
		case event.MultiEvent:
			CopySourceToTarget(ev.Multi().Events, locale)
		}
	}
}

// Merge 用文档开始事件携带的骨架写出器重建文档，encoding 为空时沿用原文编码
func Merge(events []*event.Event, locale resource.LocaleID, encoding string) ([]byte, error) {
	var sd *resource.StartDocument
	for _, ev := range events {
		if ev.Type == event.StartDocument {
			sd = ev.StartDocument()
			break
		}
	}
	if sd == nil {
		return nil, errs.BadInput("filtertest.Merge", "no START_DOCUMENT event", nil)
	}
	w := filterwriter.NewFromStartDocument(sd)
	var buf bytes.Buffer
	w.SetOptions(locale, encoding)
	w.SetOutput(&buf)
	for _, ev := range events {
		if err := w.HandleEvent(ev); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RoundTrip 抽取、复制源文为译文、再合并，返回输出的字节
func RoundTrip(f filter.Filter, doc *resource.RawDocument) ([]byte, error) {
	events, err := Extract(f, doc)
	if err != nil {
		return nil, err
	}
	if err := ValidateEvents(events); err != nil {
		return nil, err
	}
	locale := doc.TargetLocale
	if locale.IsEmpty() {
		locale = resource.NewLocaleID("fr")
	}
	CopySourceToTarget(events, locale)
	return Merge(events, locale, "")
}

// Compare 比较两份文档，不同时报告第一个不同的字节位置
func Compare(want, got []byte) error {
	if bytes.Equal(want, got) {
		return nil
	}
	n := min(len(want), len(got))
	pos := n
	for i := 0; i < n; i++ {
		if want[i] != got[i] {
			pos = i
			break
		}
	}
	return fmt.Errorf("documents differ at byte %d: want %q, got %q",
		pos, excerpt(want, pos), excerpt(got, pos))
}

func excerpt(data []byte, pos int) string {
	start := max(0, pos-10)
	end := min(len(data), pos+20)
	return string(data[start:end])
}

// ValidateEvents 检查事件流的结构
//
// 第一个事件是唯一的 START_DOCUMENT，最后一个是 END_DOCUMENT 或 CANCELED；
// 分组与子文档正确嵌套；资源 ID 唯一（结束资源除外）；所有片段的标记与代码一致。
func ValidateEvents(events []*event.Event) error {
	if len(events) == 0 {
		return errs.BadInput("ValidateEvents", "empty event stream", nil)
	}
	if events[0].Type != event.StartDocument {
		return errs.BadInput("ValidateEvents", "first event is "+events[0].Type.String(), nil)
	}
	last := events[len(events)-1].Type
	if last != event.EndDocument && last != event.Canceled {
		return errs.BadInput("ValidateEvents", "last event is "+last.String(), nil)
	}

	v := &validator{ids: make(map[string]bool)}
	for i, ev := range events {
		if err := v.check(ev, i == 0, i == len(events)-1); err != nil {
			return err
		}
	}
	if len(v.stack) > 0 {
		return errs.BadInput("ValidateEvents", fmt.Sprintf("%d groups not closed", len(v.stack)), nil)
	}
	return nil
}

type frame struct {
	typ event.Type
	id  string
}

type validator struct {
	stack []frame
	ids   map[string]bool
}

func (v *validator) check(ev *event.Event, first, last bool) error {
	switch ev.Type {
	case event.StartDocument:
		if !first {
			return errs.BadInput("ValidateEvents", "more than one START_DOCUMENT", nil)
		}
	case event.EndDocument, event.Canceled:
		if !last {
			return errs.BadInput("ValidateEvents", ev.Type.String()+" before the end of the stream", nil)
		}
		return nil
	case event.StartGroup, event.StartSubDocument:
		v.stack = append(v.stack, frame{typ: ev.Type, id: ev.Resource().ID()})
	case event.EndGroup, event.EndSubDocument:
		return v.pop(ev)
	case event.TextUnit:
		if err := checkTextUnit(ev.TextUnit()); err != nil {
			return err
		}
	case event.MultiEvent:
		for _, sub := range ev.Multi().Events {
			if err := v.check(sub, false, false); err != nil {
				return err
			}
		}
		return nil
	}

	if res := ev.Resource(); res != nil {
		if v.ids[res.ID()] {
			return errs.BadInput("ValidateEvents", "duplicate resource id "+res.ID(), nil)
		}
		v.ids[res.ID()] = true
	}
	return nil
}

func (v *validator) pop(ev *event.Event) error {
	want := event.StartGroup
	if ev.Type == event.EndSubDocument {
		want = event.StartSubDocument
	}
	if len(v.stack) == 0 {
		return errs.BadInput("ValidateEvents", ev.Type.String()+" without start", nil)
	}
	top := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	if top.typ != want {
		return errs.BadInput("ValidateEvents", fmt.Sprintf("%s closes %s %s", ev.Type, top.typ, top.id), nil)
	}
	if id := ev.Ending().ID(); id != top.id {
		return errs.BadInput("ValidateEvents", fmt.Sprintf("%s %s closes %s", ev.Type, id, top.id), nil)
	}
	return nil
}

func checkTextUnit(tu *resource.TextUnit) error {
	containers := []*resource.TextContainer{tu.Source()}
	for _, loc := range tu.TargetLocales() {
		containers = append(containers, tu.Target(loc))
	}
	for _, tc := range containers {
		for _, part := range tc.Parts() {
			if err := part.Content.Validate(); err != nil {
				return fmt.Errorf("text unit %s: %w", tu.ID(), err)
			}
		}
	}
	return nil
}
