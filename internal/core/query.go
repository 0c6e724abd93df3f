package core

// Filter is an equality predicate on a column.
type Filter struct {
	Column string
	Value  string
}

// Order sorts by a column.
type Order struct {
	Column    string
	Ascending bool
}

// Query narrows a select. The zero value selects every column of every row
// in backend order.
type Query struct {
	Columns []string
	Filters []Filter
	Order   []Order
}

// Eq returns a copy of q with an added equality filter.
func (q Query) Eq(column, value string) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

// OrderBy returns a copy of q with an added sort key.
func (q Query) OrderBy(column string, ascending bool) Query {
	q.Order = append(append([]Order(nil), q.Order...), Order{Column: column, Ascending: ascending})
	return q
}

// Select returns a copy of q restricted to the given columns.
func (q Query) Select(columns ...string) Query {
	q.Columns = append([]string(nil), columns...)
	return q
}
