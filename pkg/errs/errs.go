// Package errs 定义整个框架共享的错误分类
package errs

import (
	"errors"
	"fmt"
)

// 预定义错误类别，用 errors.Is 判断
var (
	// ErrBadInput 输入为空、不可读或格式错误
	ErrBadInput = errors.New("bad input")

	// ErrBadParameters 参数缺失或不兼容
	ErrBadParameters = errors.New("bad parameters")

	// ErrIO 底层流或文件错误
	ErrIO = errors.New("i/o failure")

	// ErrStepInputMismatch 步骤收到当前状态无法处理的事件
	ErrStepInputMismatch = errors.New("step input mismatch")

	// ErrCanceled 处理被取消
	ErrCanceled = errors.New("canceled")

	// ErrUnknownReference 骨架引用了尚未出现的资源
	ErrUnknownReference = errors.New("unknown reference")

	// ErrIllegalState 在错误的状态下调用了操作
	ErrIllegalState = errors.New("illegal state")
)

// Error 带上下文的错误
type Error struct {
	Kind    error  // 错误类别
	Op      string // 发生错误的操作
	Message string // 错误消息
	Cause   error  // 原因
}

// Error 实现 error 接口
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回原因错误
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 让 errors.Is 能匹配错误类别
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// BadInput 创建输入错误
func BadInput(op, message string, cause error) error {
	return newError(ErrBadInput, op, message, cause)
}

// BadParameters 创建参数错误
func BadParameters(op, message string, cause error) error {
	return newError(ErrBadParameters, op, message, cause)
}

// IO 包装 I/O 错误；已经是 IO 类别的错误原样返回
func IO(op string, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrIO) {
		return cause
	}
	return newError(ErrIO, op, "", cause)
}

// StepInput 创建步骤输入不匹配错误
func StepInput(op, message string) error {
	return newError(ErrStepInputMismatch, op, message, nil)
}

// UnknownReference 创建未知引用错误
func UnknownReference(op, id string) error {
	return newError(ErrUnknownReference, op, fmt.Sprintf("resource %q has not been seen yet", id), nil)
}

// IllegalState 创建状态错误
func IllegalState(op, message string) error {
	return newError(ErrIllegalState, op, message, nil)
}

// Canceled 创建取消错误，cause 通常是 context 的错误
func Canceled(op string, cause error) error {
	return newError(ErrCanceled, op, "", cause)
}

// Kind 返回错误的类别，未知时返回 nil
func Kind(err error) error {
	for _, kind := range []error{
		ErrBadInput, ErrBadParameters, ErrIO, ErrStepInputMismatch,
		ErrCanceled, ErrUnknownReference, ErrIllegalState,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
