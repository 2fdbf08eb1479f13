package series

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"bifurcation/models"
	"bifurcation/utils"
)

var mu sync.RWMutex

// SeriesPath returns <dir>/<name>.txt.
func SeriesPath(dir, name string) string {
	return filepath.Join(dir, name+".txt")
}

// AppendSeries writes values as space-separated integers at the end of the file, followed
// by a single space, creating the file and its directory when missing.
func AppendSeries(path string, values []int) error {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := utils.CreateFolder(dir); err != nil {
			return models.IOFailure("create series directory", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return models.IOFailure("open series file", err)
	}

	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte(' ')

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return models.IOFailure("write series file", err)
	}
	if err := f.Close(); err != nil {
		return models.IOFailure("close series file", err)
	}
	return nil
}

// ReadSeries reads every integer from a series file. Any whitespace separates values and
// the empty token left by a trailing delimiter is ignored.
func ReadSeries(path string) ([]int, error) {
	mu.RLock()
	defer mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.IOFailure("read series file", err)
	}

	fields := strings.Fields(string(data))
	values := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, models.InvalidArgument("not an integer: %q", field))
		}
		values[i] = v
	}
	return values, nil
}

// Reset removes a series file so a new run starts empty. A missing file is not an error.
func Reset(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return models.IOFailure("remove series file", err)
	}
	return nil
}
