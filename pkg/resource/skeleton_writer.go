package resource

import "github.com/nerdneilsfield/go-okapi/pkg/encoder"

// SkeletonWriter 把资源与骨架组合回输出文本
//
// 每个 Process 方法返回需要写出的文本。被标记为引用目标的资源
// 会被暂存，返回空串，直到骨架中的引用把它取出。
type SkeletonWriter interface {
	ProcessStartDocument(outputLocale LocaleID, outputEncoding string, encoders *encoder.Manager, sd *StartDocument) (string, error)
	ProcessEndDocument(ending *Ending) (string, error)
	ProcessStartSubDocument(ssd *StartSubDocument) (string, error)
	ProcessEndSubDocument(ending *Ending) (string, error)
	ProcessStartGroup(sg *StartGroup) (string, error)
	ProcessEndGroup(ending *Ending) (string, error)
	ProcessTextUnit(tu *TextUnit) (string, error)
	ProcessDocumentPart(dp *DocumentPart) (string, error)
	Close()
}
