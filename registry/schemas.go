package registry

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
)

// RegisterLines registers one schema declaration per line. Blank lines
// and lines starting with "#" are skipped.
func (r *Registry) RegisterLines(data []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := r.Register(line); err != nil {
			return fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	return sc.Err()
}

// LoadSchemas loads operator declarations from a file, one per line.
func (r *Registry) LoadSchemas(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading schemas file: %w", err)
	}
	if err := r.RegisterLines(data); err != nil {
		return fmt.Errorf("schemas file %s: %w", path, err)
	}
	return nil
}
