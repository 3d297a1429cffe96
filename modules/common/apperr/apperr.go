package apperr

import (
	"errors"
	"fmt"
)

// Kind - 호출자가 분기할 수 있는 에러 종류
type Kind string

const (
	KindConfiguration       Kind = "configuration"
	KindValidation          Kind = "validation"
	KindUploadSoft          Kind = "upload_soft"
	KindTransfer            Kind = "transfer"
	KindTaskFailed          Kind = "task_failed"
	KindTaskTimeout         Kind = "task_timeout"
	KindPersistenceDegraded Kind = "persistence_degraded"
	KindGenerationFailed    Kind = "generation_failed"
	KindNotFound            Kind = "not_found"
)

// Error - 종류(Kind)와 실패한 작업(Op)을 함께 담는 에러
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New - Kind 에러 생성
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf - 메시지로 Kind 에러 생성
func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf - 체인에서 가장 바깥의 Kind 반환 (없으면 "")
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind - 에러 체인에 해당 Kind가 있는지 확인
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var appErr *Error
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}
