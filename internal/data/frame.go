package data

// Frame is a batch of records with the union of their fields as columns.
// Fields absent from a record read as missing.
type Frame struct {
	columns []string
	index   map[string]bool
	rows    []Record
}

func NewFrame(records ...Record) *Frame {
	f := &Frame{index: make(map[string]bool)}
	for _, r := range records {
		f.Append(r)
	}
	return f
}

func (f *Frame) Append(r Record) {
	for _, k := range r.Keys() {
		if !f.index[k] {
			f.index[k] = true
			f.columns = append(f.columns, k)
		}
	}
	f.rows = append(f.rows, r)
}

func (f *Frame) Len() int {
	return len(f.rows)
}

func (f *Frame) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

func (f *Frame) Has(column string) bool {
	return f.index[column]
}

func (f *Frame) Get(row int, column string) any {
	return f.rows[row][column]
}

func (f *Frame) Row(i int) Record {
	return f.rows[i]
}

func (f *Frame) Column(column string) []any {
	out := make([]any, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[column]
	}
	return out
}
