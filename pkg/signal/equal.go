package signal

import (
	"math"
	"reflect"
)

// defaultEquals provides type-appropriate equality checking.
// Uses == for basic types and reflect.DeepEqual for others, so pointers
// compare by address first and by pointee otherwise. NaN equals NaN, so
// setting a cell to NaN twice notifies once.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return basicEqual(av, any(b))
	case int8:
		return basicEqual(av, any(b))
	case int16:
		return basicEqual(av, any(b))
	case int32:
		return basicEqual(av, any(b))
	case int64:
		return basicEqual(av, any(b))
	case uint:
		return basicEqual(av, any(b))
	case uint8:
		return basicEqual(av, any(b))
	case uint16:
		return basicEqual(av, any(b))
	case uint32:
		return basicEqual(av, any(b))
	case uint64:
		return basicEqual(av, any(b))
	case float32:
		return floatEqual(av, any(b))
	case float64:
		return floatEqual(av, any(b))
	case string:
		return basicEqual(av, any(b))
	case bool:
		return basicEqual(av, any(b))
	case Unit:
		return basicEqual(av, any(b))
	default:
		return reflect.DeepEqual(a, b)
	}
}

// basicEqual compares av with b, which may hold a different dynamic type
// when T is an interface type.
func basicEqual[V comparable](av V, b any) bool {
	bv, ok := b.(V)
	return ok && av == bv
}

// floatEqual is basicEqual for floats, with NaN equal to NaN.
func floatEqual[V float32 | float64](av V, b any) bool {
	bv, ok := b.(V)
	if !ok {
		return false
	}
	return av == bv || (math.IsNaN(float64(av)) && math.IsNaN(float64(bv)))
}
