package persistence

import (
    "encoding/gob"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"

    "gopkg.in/yaml.v3"
)

// WriteFileAtomic writes into a temporary file next to filename and renames
// it into place, so readers never observe a partially written file.
func WriteFileAtomic(filename string, perm os.FileMode, write func(w io.Writer) error) error {
    dir := filepath.Dir(filename)
    if err := os.MkdirAll(dir, 0755); err != nil {
        return fmt.Errorf("failed to create directory: %w", err)
    }

    tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".tmp-*")
    if err != nil {
        return fmt.Errorf("failed to create temp file: %w", err)
    }
    tmpName := tmp.Name()
    defer os.Remove(tmpName)

    if err := write(tmp); err != nil {
        tmp.Close()
        return err
    }
    if err := tmp.Sync(); err != nil {
        tmp.Close()
        return fmt.Errorf("failed to sync temp file: %w", err)
    }
    if err := tmp.Close(); err != nil {
        return fmt.Errorf("failed to close temp file: %w", err)
    }
    if err := os.Chmod(tmpName, perm); err != nil {
        return fmt.Errorf("failed to chmod temp file: %w", err)
    }
    if err := os.Rename(tmpName, filename); err != nil {
        return fmt.Errorf("failed to rename temp file: %w", err)
    }

    return nil
}

func SaveGob(filename string, v any) error {
    return WriteFileAtomic(filename, 0644, func(w io.Writer) error {
        if err := gob.NewEncoder(w).Encode(v); err != nil {
            return fmt.Errorf("failed to encode %s: %w", filepath.Base(filename), err)
        }
        return nil
    })
}

func LoadGob(filename string, v any) error {
    file, err := os.Open(filename)
    if err != nil {
        return err
    }
    defer file.Close()

    if err := gob.NewDecoder(file).Decode(v); err != nil {
        return fmt.Errorf("failed to decode %s: %w", filepath.Base(filename), err)
    }
    return nil
}

func SaveYAML(filename string, v any) error {
    return WriteFileAtomic(filename, 0644, func(w io.Writer) error {
        enc := yaml.NewEncoder(w)
        enc.SetIndent(2)
        if err := enc.Encode(v); err != nil {
            return fmt.Errorf("failed to encode %s: %w", filepath.Base(filename), err)
        }
        return enc.Close()
    })
}

func LoadYAML(filename string, v any) error {
    data, err := os.ReadFile(filename)
    if err != nil {
        return err
    }
    if err := yaml.Unmarshal(data, v); err != nil {
        return fmt.Errorf("failed to parse %s: %w", filepath.Base(filename), err)
    }
    return nil
}

func SaveJSON(filename string, v any) error {
    return WriteFileAtomic(filename, 0644, func(w io.Writer) error {
        enc := json.NewEncoder(w)
        enc.SetIndent("", "    ")
        return enc.Encode(v)
    })
}
