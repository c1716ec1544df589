// Package event 定义过滤器与管道步骤之间传递的事件
package event

import (
	"fmt"

	"github.com/nerdneilsfield/go-okapi/pkg/resource"
)

// Type 事件类型
type Type int

const (
	NoOp Type = iota
	StartBatch
	EndBatch
	StartBatchItem
	EndBatchItem
	RawDocument
	StartDocument
	EndDocument
	StartSubDocument
	EndSubDocument
	StartGroup
	EndGroup
	TextUnit
	DocumentPart
	MultiEvent
	Canceled
)

var typeNames = map[Type]string{
	NoOp:             "NO_OP",
	StartBatch:       "START_BATCH",
	EndBatch:         "END_BATCH",
	StartBatchItem:   "START_BATCH_ITEM",
	EndBatchItem:     "END_BATCH_ITEM",
	RawDocument:      "RAW_DOCUMENT",
	StartDocument:    "START_DOCUMENT",
	EndDocument:      "END_DOCUMENT",
	StartSubDocument: "START_SUBDOCUMENT",
	EndSubDocument:   "END_SUBDOCUMENT",
	StartGroup:       "START_GROUP",
	EndGroup:         "END_GROUP",
	TextUnit:         "TEXT_UNIT",
	DocumentPart:     "DOCUMENT_PART",
	MultiEvent:       "MULTI_EVENT",
	Canceled:         "CANCELED",
}

// String 返回类型名
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Event 一个事件，携带与类型对应的资源
type Event struct {
	Type    Type
	payload any
}

func newEvent(t Type, payload any) *Event {
	return &Event{Type: t, payload: payload}
}

// NewNoop 空事件，不会传给观察者
func NewNoop() *Event { return newEvent(NoOp, nil) }

// NewCanceled 取消事件
func NewCanceled() *Event { return newEvent(Canceled, nil) }

// NewStartBatch 批处理开始
func NewStartBatch() *Event { return newEvent(StartBatch, nil) }

// NewEndBatch 批处理结束
func NewEndBatch() *Event { return newEvent(EndBatch, nil) }

// NewStartBatchItem 批处理条目开始
func NewStartBatchItem() *Event { return newEvent(StartBatchItem, nil) }

// NewEndBatchItem 批处理条目结束
func NewEndBatchItem() *Event { return newEvent(EndBatchItem, nil) }

// NewRawDocument 原始文档事件
func NewRawDocument(rd *resource.RawDocument) *Event { return newEvent(RawDocument, rd) }

// NewStartDocument 文档开始
func NewStartDocument(sd *resource.StartDocument) *Event { return newEvent(StartDocument, sd) }

// NewEndDocument 文档结束
func NewEndDocument(e *resource.Ending) *Event { return newEvent(EndDocument, e) }

// NewStartSubDocument 子文档开始
func NewStartSubDocument(ssd *resource.StartSubDocument) *Event {
	return newEvent(StartSubDocument, ssd)
}

// NewEndSubDocument 子文档结束
func NewEndSubDocument(e *resource.Ending) *Event { return newEvent(EndSubDocument, e) }

// NewStartGroup 分组开始
func NewStartGroup(sg *resource.StartGroup) *Event { return newEvent(StartGroup, sg) }

// NewEndGroup 分组结束
func NewEndGroup(e *resource.Ending) *Event { return newEvent(EndGroup, e) }

// NewTextUnit 文本单元
func NewTextUnit(tu *resource.TextUnit) *Event { return newEvent(TextUnit, tu) }

// NewDocumentPart 文档片段
func NewDocumentPart(dp *resource.DocumentPart) *Event { return newEvent(DocumentPart, dp) }

// NewMultiEvent 多事件
func NewMultiEvent(m *Multi) *Event { return newEvent(MultiEvent, m) }

// IsNoop 是否为空事件
func (e *Event) IsNoop() bool { return e.Type == NoOp }

// Resource 结构性资源，其它类型返回 nil
func (e *Event) Resource() resource.Resource {
	if r, ok := e.payload.(resource.Resource); ok {
		return r
	}
	return nil
}

// StartDocument 返回文档开始资源
func (e *Event) StartDocument() *resource.StartDocument {
	sd, _ := e.payload.(*resource.StartDocument)
	return sd
}

// Ending 返回结束资源
func (e *Event) Ending() *resource.Ending {
	end, _ := e.payload.(*resource.Ending)
	return end
}

// StartSubDocument 返回子文档资源
func (e *Event) StartSubDocument() *resource.StartSubDocument {
	ssd, _ := e.payload.(*resource.StartSubDocument)
	return ssd
}

// StartGroup 返回分组资源
func (e *Event) StartGroup() *resource.StartGroup {
	sg, _ := e.payload.(*resource.StartGroup)
	return sg
}

// TextUnit 返回文本单元
func (e *Event) TextUnit() *resource.TextUnit {
	tu, _ := e.payload.(*resource.TextUnit)
	return tu
}

// DocumentPart 返回文档片段
func (e *Event) DocumentPart() *resource.DocumentPart {
	dp, _ := e.payload.(*resource.DocumentPart)
	return dp
}

// RawDocument 返回原始文档
func (e *Event) RawDocument() *resource.RawDocument {
	rd, _ := e.payload.(*resource.RawDocument)
	return rd
}

// Multi 返回多事件
func (e *Event) Multi() *Multi {
	m, _ := e.payload.(*Multi)
	return m
}

// String 用于日志
func (e *Event) String() string {
	if r := e.Resource(); r != nil {
		return fmt.Sprintf("%s(%s)", e.Type, r.ID())
	}
	if m := e.Multi(); m != nil {
		return fmt.Sprintf("%s[%d]", e.Type, len(m.Events))
	}
	return e.Type.String()
}

// Multi 一个步骤一次性产出的多个事件
type Multi struct {
	ID     string
	Events []*Event
	// PropagateAsSingle 为 true 时管道不展开，作为整体传给后续步骤
	PropagateAsSingle bool
}

// NewMulti 创建多事件
func NewMulti(events ...*Event) *Multi {
	return &Multi{Events: events}
}

// Add 追加事件
func (m *Multi) Add(ev *Event) {
	m.Events = append(m.Events, ev)
}

// Len 事件数量
func (m *Multi) Len() int {
	return len(m.Events)
}
