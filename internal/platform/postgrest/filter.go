package postgrest

import (
	"strings"

	pgrst "github.com/supabase-community/postgrest-go"
)

// Filter records conditions and paging, replayed onto a postgrest-go
// filter builder when the request is built.
type Filter struct {
	cols   []string
	steps  []func(*pgrst.FilterBuilder) *pgrst.FilterBuilder
	limit  int
	offset int
	cond   bool
}

func Where() *Filter {
	return &Filter{}
}

// Select restricts the returned columns; the default is every column.
func (f *Filter) Select(cols ...string) *Filter {
	f.cols = cols
	return f
}

func (f *Filter) Eq(col, val string) *Filter {
	f.steps = append(f.steps, func(fb *pgrst.FilterBuilder) *pgrst.FilterBuilder { return fb.Eq(col, val) })
	f.cond = true
	return f
}

// Order appends a sort key; repeated calls sort by several columns.
func (f *Filter) Order(col string, desc bool) *Filter {
	f.steps = append(f.steps, func(fb *pgrst.FilterBuilder) *pgrst.FilterBuilder {
		return fb.Order(col, &pgrst.OrderOpts{Ascending: !desc})
	})
	return f
}

func (f *Filter) Limit(n int) *Filter {
	f.limit = n
	return f
}

// Offset only applies together with Limit.
func (f *Filter) Offset(n int) *Filter {
	f.offset = n
	return f
}

func (f *Filter) hasCondition() bool {
	return f != nil && f.cond
}

func (f *Filter) columns() string {
	if f == nil {
		return ""
	}
	return strings.Join(f.cols, ",")
}

func (f *Filter) apply(fb *pgrst.FilterBuilder) *pgrst.FilterBuilder {
	if f == nil {
		return fb
	}
	for _, step := range f.steps {
		fb = step(fb)
	}
	switch {
	case f.limit > 0 && f.offset > 0:
		fb = fb.Range(f.offset, f.offset+f.limit-1, "")
	case f.limit > 0:
		fb = fb.Limit(f.limit, "")
	}
	return fb
}
