// Package progress 观察管道输出的事件，统计每个文档的处理结果
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-okapi/pkg/event"
	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// DocumentStats 一个文档的统计
type DocumentStats struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time

	TextUnits    int
	Translatable int
	Segments     int
	Characters   int
	// Translated 至少有一种目标语言内容的文本单元
	Translated int
	// Leveraged 目标内容带有匹配分数（来自翻译记忆库）
	Leveraged int
	// DiffLeveraged 译文从旧版本文档复制
	DiffLeveraged int
	Completed     bool
}

// Duration 处理耗时
func (d DocumentStats) Duration() time.Duration {
	if d.EndTime.IsZero() {
		return 0
	}
	return d.EndTime.Sub(d.StartTime)
}

func (d *DocumentStats) add(o DocumentStats) {
	d.TextUnits += o.TextUnits
	d.Translatable += o.Translatable
	d.Segments += o.Segments
	d.Characters += o.Characters
	d.Translated += o.Translated
	d.Leveraged += o.Leveraged
	d.DiffLeveraged += o.DiffLeveraged
}

// Tracker 实现 pipeline.Observer
type Tracker struct {
	mu      sync.Mutex
	docs    []*DocumentStats
	current *DocumentStats
	logger  *zap.Logger
	now     func() time.Time
}

// NewTracker 创建跟踪器
func NewTracker(logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{logger: logger, now: time.Now}
}

// OnEvent 处理管道最后一个步骤输出的事件
func (t *Tracker) OnEvent(ev *event.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observe(ev)
}

func (t *Tracker) observe(ev *event.Event) {
	switch ev.Type {
	case event.MultiEvent:
		for _, sub := range ev.Multi().Events {
			t.observe(sub)
		}
	case event.StartDocument:
		t.current = &DocumentStats{Name: ev.StartDocument().Name(), StartTime: t.now()}
		t.docs = append(t.docs, t.current)
	case event.TextUnit:
		if t.current != nil {
			t.countUnit(ev.TextUnit())
		}
	case event.EndDocument:
		if t.current == nil {
			return
		}
		t.current.EndTime = t.now()
		t.current.Completed = true
		t.logger.Debug("document finished",
			zap.String("document", t.current.Name),
			zap.Int("textUnits", t.current.TextUnits),
			zap.Duration("duration", t.current.Duration()))
		t.current = nil
	}
}

func (t *Tracker) countUnit(tu *resource.TextUnit) {
	d := t.current
	d.TextUnits++
	if !tu.IsTranslatable() {
		return
	}
	d.Translatable++
	d.Characters += len([]rune(tu.Source().Text()))
	d.Segments += len(tu.Source().Segments())
	if tu.DiffLeverage != nil {
		d.DiffLeveraged++
	}
	translated, leveraged := false, false
	for _, loc := range tu.TargetLocales() {
		trg := tu.Target(loc)
		if trg == nil || !trg.HasText() {
			continue
		}
		translated = true
		if trg.Scores != nil {
			leveraged = true
		}
	}
	if translated {
		d.Translated++
	}
	if leveraged {
		d.Leveraged++
	}
}

// Documents 已观察到的文档统计副本
func (t *Tracker) Documents() []DocumentStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DocumentStats, len(t.docs))
	for i, d := range t.docs {
		out[i] = *d
	}
	return out
}

// Totals 全部文档的合计
func (t *Tracker) Totals() DocumentStats {
	total := DocumentStats{Name: "total", Completed: true}
	for _, d := range t.Documents() {
		total.add(d)
		if total.StartTime.IsZero() || d.StartTime.Before(total.StartTime) {
			total.StartTime = d.StartTime
		}
		if d.EndTime.After(total.EndTime) {
			total.EndTime = d.EndTime
		}
		total.Completed = total.Completed && d.Completed
	}
	return total
}

// Render 以表格输出每个文档与合计
func (t *Tracker) Render(w io.Writer) {
	docs := t.Documents()
	if len(docs) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Document", "Units", "Translatable", "Segments", "Chars", "Translated", "TM", "Diff", "Time"})
	for _, d := range docs {
		tw.AppendRow(row(d))
	}
	if len(docs) > 1 {
		tw.AppendSeparator()
		tw.AppendRow(row(t.Totals()))
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func row(d DocumentStats) table.Row {
	elapsed := "-"
	if d.Completed {
		elapsed = formatDuration(d.Duration())
	}
	return table.Row{d.Name, d.TextUnits, d.Translatable, d.Segments, d.Characters, d.Translated, d.Leveraged, d.DiffLeveraged, elapsed}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "<1ms"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
