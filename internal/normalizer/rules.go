package normalizer

import (
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

func field(names ...string) func(payload.Value) bool {
	return func(v payload.Value) bool {
		return v.Get("field").OneOf(names...)
	}
}

func has(path string) func(payload.Value) bool {
	return func(v payload.Value) bool {
		return v.Has(path)
	}
}

func truthy(path string) func(payload.Value) bool {
	return func(v payload.Value) bool {
		return v.Get(path).Bool()
	}
}

func equals(path string, values ...string) func(payload.Value) bool {
	return func(v payload.Value) bool {
		return v.Get(path).OneOf(values...)
	}
}

func allOf(conds ...func(payload.Value) bool) func(payload.Value) bool {
	return func(v payload.Value) bool {
		for _, c := range conds {
			if !c(v) {
				return false
			}
		}
		return true
	}
}

func anyOf(conds ...func(payload.Value) bool) func(payload.Value) bool {
	return func(v payload.Value) bool {
		for _, c := range conds {
			if c(v) {
				return true
			}
		}
		return false
	}
}
