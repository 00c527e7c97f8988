package script

import (
	"reflect"
	"strings"

	"github.com/dop251/goja"
)

var consoleMethods = []string{"log", "info", "warn", "error", "debug"}

// installConsole binds a console object that forwards to sink.
func installConsole(vm *goja.Runtime, sink Sink) error {
	console := vm.NewObject()
	emit := func(call goja.FunctionCall) goja.Value {
		sink.Print(formatArgs(vm, call.Arguments))
		return goja.Undefined()
	}
	for _, name := range consoleMethods {
		if err := console.Set(name, emit); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

// formatArgs joins console arguments with a single space. Strings are kept
// verbatim and other values go through JSON.stringify.
func formatArgs(vm *goja.Runtime, args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatValue(vm, arg))
	}
	return strings.Join(parts, " ")
}

func formatValue(vm *goja.Runtime, v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if sym, ok := v.(*goja.Symbol); ok {
		return symbolString(vm, sym)
	}
	if t := v.ExportType(); t != nil && t.Kind() == reflect.String {
		return v.String()
	}
	if _, ok := goja.AssertFunction(v); ok {
		return v.String()
	}
	if out, ok := stringify(vm, v); ok {
		return out
	}
	return v.String()
}

func stringify(vm *goja.Runtime, v goja.Value) (string, bool) {
	jsonObj := vm.Get("JSON")
	if jsonObj == nil {
		return "", false
	}
	fn, ok := goja.AssertFunction(jsonObj.ToObject(vm).Get("stringify"))
	if !ok {
		return "", false
	}
	out, err := fn(jsonObj, v)
	if err != nil || out == nil || goja.IsUndefined(out) {
		return "", false
	}
	return out.String(), true
}

// symbolString renders a symbol the way String(sym) does, e.g. "Symbol(x)".
func symbolString(vm *goja.Runtime, sym *goja.Symbol) string {
	if fn, ok := goja.AssertFunction(vm.Get("String")); ok {
		if out, err := fn(goja.Undefined(), sym); err == nil {
			return out.String()
		}
	}
	return sym.String()
}
