package data

import (
    "encoding/csv"
    "errors"
    "fmt"
    "io"
    "io/fs"
    "os"
    "sort"

    "learninghouse/internal/persistence"
)

// ObservationLog is the append-only raw training data of one brain. The header
// grows when new fields show up; older rows read those fields as missing.
type ObservationLog struct {
    filename string
}

func NewObservationLog(filename string) *ObservationLog {
    return &ObservationLog{filename: filename}
}

func (l *ObservationLog) Exists() bool {
    _, err := os.Stat(l.filename)
    return err == nil
}

func (l *ObservationLog) Load() (*Frame, error) {
    header, rows, err := l.readAll()
    if err != nil {
        return nil, err
    }

    frame := &Frame{index: make(map[string]bool)}
    for _, h := range header {
        frame.index[h] = true
        frame.columns = append(frame.columns, h)
    }

    for _, row := range rows {
        record := make(Record, len(header))
        for j, h := range header {
            if j < len(row) {
                record[h] = ParseValue(row[j])
            } else {
                record[h] = nil
            }
        }
        frame.rows = append(frame.rows, record)
    }

    return frame, nil
}

// Count returns the number of logged observations, 0 if the log does not exist.
func (l *ObservationLog) Count() (int, error) {
    _, rows, err := l.readAll()
    if errors.Is(err, fs.ErrNotExist) {
        return 0, nil
    }
    if err != nil {
        return 0, err
    }
    return len(rows), nil
}

func (l *ObservationLog) Append(record Record) error {
    header, err := l.readHeader()
    if errors.Is(err, fs.ErrNotExist) {
        header = record.Keys()
        return l.rewrite(header, [][]string{formatRow(header, record)})
    }
    if err != nil {
        return err
    }

    known := make(map[string]bool, len(header))
    for _, h := range header {
        known[h] = true
    }
    var added []string
    for k := range record {
        if !known[k] {
            added = append(added, k)
        }
    }

    if len(added) == 0 {
        return l.appendRow(formatRow(header, record))
    }

    sort.Strings(added)
    _, rows, err := l.readAll()
    if err != nil {
        return err
    }
    grown := append(header, added...)
    for i := range rows {
        for len(rows[i]) < len(grown) {
            rows[i] = append(rows[i], "")
        }
    }
    rows = append(rows, formatRow(grown, record))

    return l.rewrite(grown, rows)
}

func (l *ObservationLog) readHeader() ([]string, error) {
    file, err := os.Open(l.filename)
    if err != nil {
        return nil, err
    }
    defer file.Close()

    reader := csv.NewReader(file)
    header, err := reader.Read()
    if err != nil {
        return nil, fmt.Errorf("failed to read headers: %w", err)
    }
    return header, nil
}

func (l *ObservationLog) readAll() ([]string, [][]string, error) {
    file, err := os.Open(l.filename)
    if err != nil {
        return nil, nil, err
    }
    defer file.Close()

    reader := csv.NewReader(file)
    reader.FieldsPerRecord = -1

    header, err := reader.Read()
    if err == io.EOF {
        return nil, nil, nil
    }
    if err != nil {
        return nil, nil, fmt.Errorf("failed to read headers: %w", err)
    }

    var rows [][]string
    for {
        record, err := reader.Read()
        if err == io.EOF {
            break
        }
        if err != nil {
            return nil, nil, fmt.Errorf("error reading record: %w", err)
        }
        rows = append(rows, record)
    }

    return header, rows, nil
}

func (l *ObservationLog) appendRow(row []string) error {
    file, err := os.OpenFile(l.filename, os.O_WRONLY|os.O_APPEND, 0644)
    if err != nil {
        return err
    }
    defer file.Close()

    writer := csv.NewWriter(file)
    if err := writer.Write(row); err != nil {
        return err
    }
    writer.Flush()
    return writer.Error()
}

func (l *ObservationLog) rewrite(header []string, rows [][]string) error {
    return persistence.WriteFileAtomic(l.filename, 0644, func(w io.Writer) error {
        writer := csv.NewWriter(w)
        if err := writer.Write(header); err != nil {
            return err
        }
        if err := writer.WriteAll(rows); err != nil {
            return err
        }
        return writer.Error()
    })
}

func formatRow(header []string, record Record) []string {
    row := make([]string, len(header))
    for i, h := range header {
        row[i] = FormatValue(record[h])
    }
    return row
}
