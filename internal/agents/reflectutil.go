package agents

import "reflect"

// newLike returns a freshly allocated pointer of the same type as shape
// (which must itself be a pointer, typically to a zero-value struct
// literal used purely as a type template in an action table entry).
func newLike(shape any) any {
	t := reflect.TypeOf(shape)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return reflect.New(t).Interface()
}
