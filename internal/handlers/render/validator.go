package render

import (
	"reflect"
	"strings"
)

// useJSONTagNames makes validation errors refer to json field names
// instead of Go struct field names
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}
