package search

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownAttribute        = errors.New("search: unknown attribute")
	ErrTypeCast                = errors.New("search: type cast")
	ErrJoinDepthExceeded       = errors.New("search: join depth exceeded")
	ErrPolymorphicTypeRequired = errors.New("search: polymorphic type required")
	ErrDuplicateName           = errors.New("search: duplicate predicate name")
	ErrInvalidMethodReturn     = errors.New("search: invalid method return")
	ErrMethodArguments         = errors.New("search: wrong number of method arguments")
	ErrInvalidSort             = errors.New("search: invalid sort")
)

// UnknownAttributeError reports a key that names no predicate, column, association or method
// available to the caller.
type UnknownAttributeError struct {
	Entity      string
	Key         string
	Suggestions []string
}

func (e *UnknownAttributeError) Error() string {
	msg := fmt.Sprintf("search: %s has no search attribute %q", e.Entity, e.Key)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(quoteAll(e.Suggestions), ", "))
	}
	return msg
}

func (e *UnknownAttributeError) Is(target error) bool { return target == ErrUnknownAttribute }

type TypeCastError struct {
	Type TypeTag
}

func (e *TypeCastError) Error() string {
	return fmt.Sprintf("search: unable to cast values of type %q", e.Type)
}

func (e *TypeCastError) Is(target error) bool { return target == ErrTypeCast }

type JoinDepthExceededError struct {
	Path  string
	Depth int
	Max   int
}

func (e *JoinDepthExceededError) Error() string {
	return fmt.Sprintf("search: join %s has depth %d, maximum is %d", e.Path, e.Depth, e.Max)
}

func (e *JoinDepthExceededError) Is(target error) bool { return target == ErrJoinDepthExceeded }

type PolymorphicTypeRequiredError struct {
	Entity      string
	Association string
	Key         string
}

func (e *PolymorphicTypeRequiredError) Error() string {
	return fmt.Sprintf("search: %s.%s is polymorphic; %q must name a target with <entity>_type_", e.Entity, e.Association, e.Key)
}

func (e *PolymorphicTypeRequiredError) Is(target error) bool {
	return target == ErrPolymorphicTypeRequired
}

type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("search: predicate name %q is already registered", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

type InvalidMethodReturnError struct {
	Method string
	Got    string
}

func (e *InvalidMethodReturnError) Error() string {
	return fmt.Sprintf("search: method %s returned %s, expected a relation", e.Method, e.Got)
}

func (e *InvalidMethodReturnError) Is(target error) bool { return target == ErrInvalidMethodReturn }

type MethodArgumentError struct {
	Method string
	Want   int
	Got    int
}

func (e *MethodArgumentError) Error() string {
	return fmt.Sprintf("search: method %s takes %d arguments, got %d", e.Method, e.Want, e.Got)
}

func (e *MethodArgumentError) Is(target error) bool { return target == ErrMethodArguments }

func IsUnknownAttribute(err error) bool        { return errors.Is(err, ErrUnknownAttribute) }
func IsJoinDepthExceeded(err error) bool       { return errors.Is(err, ErrJoinDepthExceeded) }
func IsPolymorphicTypeRequired(err error) bool { return errors.Is(err, ErrPolymorphicTypeRequired) }

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
