package frostvale

import "reflect"

// Archetype columns are []T values stored as any. These helpers are the only
// place the reflection plumbing lives; all slices keep their concrete element
// type so queries can hand out *T without copying.

func reflectSliceMake(elem reflect.Type) any {
	return reflect.MakeSlice(reflect.SliceOf(elem), 0, 0).Interface()
}

func reflectSliceLen(slice any) int {
	return reflect.ValueOf(slice).Len()
}

func reflectSliceGet(slice any, index int) reflect.Value {
	return reflect.ValueOf(slice).Index(index)
}

func reflectSliceSet(slice any, index int, value reflect.Value) {
	reflect.ValueOf(slice).Index(index).Set(value)
}

func reflectSliceAppend(slice any, value reflect.Value) any {
	return reflect.Append(reflect.ValueOf(slice), value).Interface()
}
