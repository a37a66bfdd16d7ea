package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeLexical   ErrorCode = "LEXICAL"
	CodeSyntax    ErrorCode = "SYNTAX"
	CodeSemantic  ErrorCode = "SEMANTIC"
	CodeExecution ErrorCode = "EXECUTION"
	CodeChannel   ErrorCode = "CHANNEL"
	CodeConfig    ErrorCode = "CONFIG"
	CodeIO        ErrorCode = "IO"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath    = "path"
	CtxLine    = "line"
	CtxChannel = "channel"
	CtxAddress = "address"
	CtxKey     = "key"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, e.Context[k])
		}
		msg += " (" + strings.Join(parts, " ") + ")"
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext returns err with a key/value pair attached. err itself is never
// modified: a DomainError is copied, anything else is wrapped, keeping the
// code of a DomainError further down the chain or EXECUTION otherwise.
func AddContext(err error, key string, value interface{}) error {
	if de, ok := err.(*DomainError); ok {
		cp := *de
		cp.Context = make(map[string]interface{}, len(de.Context)+1)
		for k, v := range de.Context {
			cp.Context[k] = v
		}
		cp.Context[key] = value
		return &cp
	}

	code := CodeExecution
	var inner *DomainError
	if errors.As(err, &inner) {
		code = inner.Code
	}
	return &DomainError{
		Code:    code,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost DomainError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}
