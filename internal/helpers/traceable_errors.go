package helpers

import (
	"github.com/ztrue/tracerr"
)

type Error struct {
	errs []tracerr.Error
}

func (e Error) IsNil() bool {
	return IsNil(e)
}

func (e Error) HasError() bool {
	return !IsNil(e)
}

var NilError = Error{nil}

func IsNil(err error) bool {
	if traceableErr, ok := err.(Error); ok {
		return traceableErr.First() == nil
	}
	if traceableErr, ok := err.(*Error); ok {
		return traceableErr == nil || traceableErr.First() == nil
	}
	return err == nil
}

const _errorIndent = ".  "

func (e Error) Error() string {
	result := ""
	for i, err := range e.errs {
		if err == nil {
			continue
		}
		if i > 0 {
			result += "\n"
		}
		if len(e.errs) == 1 {
			result += err.Error()
		} else {
			result += Indent(err.Error(), _errorIndent)
		}
	}
	return result
}

// String includes the stack traces of every joined error.
func (e Error) String() string {
	result := ""
	for _, err := range e.errs {
		result += "-------------------------------------------------------------------------------\n"
		result += tracerr.Sprint(err) + "\n"
	}
	return result
}

func (e Error) First() tracerr.Error {
	if len(e.errs) == 0 {
		return nil
	}
	return e.errs[0]
}

// Unwrap exposes the joined errors to errors.Is and errors.As.
func (e Error) Unwrap() []error {
	result := []error{}
	for _, err := range e.errs {
		if err != nil {
			result = append(result, err)
		}
	}
	return result
}

func Wrap(err error) Error {
	if IsNil(err) {
		return NilError
	}
	if traceableErr, ok := err.(Error); ok {
		return traceableErr
	}
	return Error{[]tracerr.Error{tracerr.Wrap(err)}}
}

func WrapReturn[T any](x T, err error) (T, Error) {
	return x, Wrap(err)
}

func Join(others ...Error) Error {
	others = FilterSlice(others, func(err Error) bool {
		return !IsNil(err)
	})
	if len(others) == 0 {
		return NilError
	}
	if len(others) == 1 {
		return others[0]
	}

	result := Error{}
	for _, o := range others {
		result.errs = append(result.errs, o.errs...)
	}
	return result
}

func (err Error) NumErrors() int {
	num := 0
	for _, e := range err.errs {
		if e != nil {
			num++
		}
	}
	return num
}

func Errorf(format string, args ...interface{}) Error {
	return Error{[]tracerr.Error{tracerr.Errorf(format, args...)}}
}
