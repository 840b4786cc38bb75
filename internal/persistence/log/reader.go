package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"merchantboard.ai/internal/sim/merchant"
)

// ListFiles returns the rotated files for prefix in dir, oldest first.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ScanFile calls fn for every line of a .jsonl.zst file. A file still open
// for writing may end in a partial frame; lines before it are delivered.
func ScanFile(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return sc.Err()
}

func scanDir[T any](dir, prefix string, fn func(T) error) error {
	files, err := ListFiles(dir, prefix)
	if err != nil {
		return err
	}
	for _, path := range files {
		err := ScanFile(path, func(line []byte) error {
			var v T
			if err := json.Unmarshal(line, &v); err != nil {
				return fmt.Errorf("unmarshal: %w", err)
			}
			return fn(v)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ScanAudit walks <dataDir>/audit in write order.
func ScanAudit(dataDir string, fn func(merchant.AuditEntry) error) error {
	return scanDir(filepath.Join(dataDir, "audit"), "audit", fn)
}

// ScanActs walks <dataDir>/acts in write order.
func ScanActs(dataDir string, fn func(merchant.ActLogEntry) error) error {
	return scanDir(filepath.Join(dataDir, "acts"), "acts", fn)
}
