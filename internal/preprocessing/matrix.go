package preprocessing

import (
    "sort"
)

// Matrix is a column-addressed table of float64 values. NaN marks a missing
// value.
type Matrix struct {
    columns []string
    values  map[string][]float64
    rows    int
}

func NewMatrix(rows int) *Matrix {
    return &Matrix{
        values: make(map[string][]float64),
        rows:   rows,
    }
}

// Set adds the column or replaces its values. values must have Len entries.
func (m *Matrix) Set(column string, values []float64) {
    if _, ok := m.values[column]; !ok {
        m.columns = append(m.columns, column)
    }
    m.values[column] = values
}

func (m *Matrix) Len() int {
    return m.rows
}

func (m *Matrix) Columns() []string {
    return append([]string(nil), m.columns...)
}

func (m *Matrix) Has(column string) bool {
    _, ok := m.values[column]
    return ok
}

func (m *Matrix) Column(column string) ([]float64, bool) {
    values, ok := m.values[column]
    return values, ok
}

// Select keeps the given columns that exist, in the given order.
func (m *Matrix) Select(columns []string) *Matrix {
    out := NewMatrix(m.rows)
    for _, column := range columns {
        if values, ok := m.values[column]; ok {
            out.Set(column, values)
        }
    }
    return out
}

// Reindex returns exactly the given columns in the given order. Columns that
// do not exist are filled with fill.
func (m *Matrix) Reindex(columns []string, fill float64) *Matrix {
    out := NewMatrix(m.rows)
    for _, column := range columns {
        values, ok := m.values[column]
        if !ok {
            values = filled(m.rows, fill)
        }
        out.Set(column, values)
    }
    return out
}

func (m *Matrix) SortColumns() *Matrix {
    columns := m.Columns()
    sort.Strings(columns)
    return m.Select(columns)
}

// Take returns the given rows in the given order.
func (m *Matrix) Take(rows []int) *Matrix {
    out := NewMatrix(len(rows))
    for _, column := range m.columns {
        src := m.values[column]
        dst := make([]float64, len(rows))
        for i, r := range rows {
            dst[i] = src[r]
        }
        out.Set(column, dst)
    }
    return out
}

// Values returns the matrix row-major in column order.
func (m *Matrix) Values() [][]float64 {
    out := make([][]float64, m.rows)
    for i := range out {
        row := make([]float64, len(m.columns))
        for j, column := range m.columns {
            row[j] = m.values[column][i]
        }
        out[i] = row
    }
    return out
}

func (m *Matrix) Row(i int) map[string]float64 {
    row := make(map[string]float64, len(m.columns))
    for _, column := range m.columns {
        row[column] = m.values[column][i]
    }
    return row
}

func filled(n int, value float64) []float64 {
    values := make([]float64, n)
    for i := range values {
        values[i] = value
    }
    return values
}
