package assert

import (
	"fmt"
	"reflect"
	"runtime"
)

// NotCircular 在单例构造函数中调用，检测同一 goroutine 内的递归初始化。
// sync.Once 在递归调用时会死锁，这里提前 panic 给出调用方信息。
func NotCircular() {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return
	}
	name := fn.Name()
	if callerDepth(name) > 1 {
		panic(fmt.Sprintf("circular singleton initialization detected in %s", name))
	}
}

// callerDepth 统计当前调用栈中 name 出现的次数
func callerDepth(name string) int {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	count := 0
	for {
		f, more := frames.Next()
		if f.Function == name {
			count++
		}
		if !more {
			break
		}
	}
	return count
}

// NotNil 断言单例已完成构造
func NotNil(v interface{}) {
	if v == nil {
		panic("assert: unexpected nil value")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			panic(fmt.Sprintf("assert: unexpected nil %T", v))
		}
	}
}
