package logger

import (
	"sort"
	"sync"
	"sync/atomic"
)

type componentStat struct {
	warns  int64
	errors int64
}

var components sync.Map // map[string]*componentStat

func statFor(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&statFor(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&statFor(component).errors, 1)
}

// ComponentCount is the number of warnings and errors logged by one component.
type ComponentCount struct {
	Component string `json:"component"`
	Warnings  int64  `json:"warnings"`
	Errors    int64  `json:"errors"`
}

// Counts returns the warning and error totals per component, sorted by name.
func Counts() []ComponentCount {
	out := make([]ComponentCount, 0)
	components.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		out = append(out, ComponentCount{
			Component: k.(string),
			Warnings:  atomic.LoadInt64(&cs.warns),
			Errors:    atomic.LoadInt64(&cs.errors),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// ResetCounts clears all per-component counters.
func ResetCounts() {
	components.Range(func(k, _ any) bool {
		components.Delete(k)
		return true
	})
}
