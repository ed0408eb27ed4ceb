package actions

import (
	"reflect"
	"strings"
)

// actionRegistry maps YAML action names to their concrete Go types.
// Names are matched lowercase with underscores removed, so "send_key",
// "SendKey" and "sendkey" are the same action.
//
// To add a new action:
// 1. Create a struct that implements the ActionStep interface (Validate & Build methods)
// 2. Add it to this registry with the name that will be used in YAML files
var actionRegistry = map[string]reflect.Type{
	"click":             reflect.TypeOf(Click{}),
	"sendkey":           reflect.TypeOf(SendKey{}),
	"press":             reflect.TypeOf(SendKey{}),
	"sleep":             reflect.TypeOf(Sleep{}),
	"clickifimagefound": reflect.TypeOf(ClickIfImageFound{}),
	"waitforimage":      reflect.TypeOf(WaitForImage{}),
	"repeat":            reflect.TypeOf(Repeat{}),
}

func normalizeActionName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "")
}
