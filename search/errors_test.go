package search

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
		msg      string
	}{
		{&UnknownAttributeError{Entity: "Company", Key: "nme_eq", Suggestions: []string{"name_eq"}}, ErrUnknownAttribute,
			`search: Company has no search attribute "nme_eq" (did you mean "name_eq"?)`},
		{&UnknownAttributeError{Entity: "Company", Key: "x"}, ErrUnknownAttribute, `search: Company has no search attribute "x"`},
		{&TypeCastError{Type: "geometry"}, ErrTypeCast, `search: unable to cast values of type "geometry"`},
		{&JoinDepthExceededError{Path: "a.b", Depth: 6, Max: 5}, ErrJoinDepthExceeded, "search: join a.b has depth 6, maximum is 5"},
		{&DuplicateNameError{Name: "eq"}, ErrDuplicateName, ""},
		{&InvalidMethodReturnError{Method: "m", Got: "int"}, ErrInvalidMethodReturn, ""},
		{&MethodArgumentError{Method: "m", Want: 3, Got: 1}, ErrMethodArguments, ""},
		{&PolymorphicTypeRequiredError{Entity: "Note", Association: "notable", Key: "notable_name"}, ErrPolymorphicTypeRequired, ""},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("wrapped: %w", tt.err)
		if !errors.Is(wrapped, tt.sentinel) {
			t.Fatalf("%T does not match its sentinel", tt.err)
		}
		if tt.msg != "" && tt.err.Error() != tt.msg {
			t.Fatalf("unexpected message: %s", tt.err.Error())
		}
		if tt.err.Error() == "" {
			t.Fatalf("%T has empty message", tt.err)
		}
	}
	if errors.Is(&TypeCastError{}, ErrUnknownAttribute) {
		t.Fatalf("sentinels must not overlap")
	}
}
