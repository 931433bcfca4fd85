package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

// JSON renders the ranking as an ordered object from origin to mean latency in
// seconds, best first, indented with four spaces.
//
//	{
//	    "https://a.example": 0.0512,
//	    "https://b.example": 0.1033
//	}
func JSON(ranking domain.Ranking) []byte {
	var buf bytes.Buffer
	if len(ranking) == 0 {
		buf.WriteString("{}\n")
		return buf.Bytes()
	}

	buf.WriteString("{\n")
	for i, e := range ranking {
		key, _ := json.Marshal(e.Endpoint.Origin()) // marshalling a string cannot fail
		buf.WriteString("    ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.WriteString(formatLatency(e.Latency))
		if i < len(ranking)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

// formatLatency emits a JSON-safe number; NaN and Inf never reach a ranking but
// would otherwise produce invalid JSON.
func formatLatency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "null"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Markdown renders the ranking as a numbered list with latencies in milliseconds.
func Markdown(ranking domain.Ranking) string {
	var buf bytes.Buffer
	buf.WriteString("# Best Mirrors\n\n")
	buf.WriteString("## ⭐ Best servers:\n\n")

	if len(ranking) == 0 {
		buf.WriteString("_No mirror qualified in the last refresh._\n")
		return buf.String()
	}

	for i, e := range ranking {
		marker := ""
		if i == 0 {
			marker = "🚀 "
		}
		origin := e.Endpoint.Origin()
		fmt.Fprintf(&buf, "%d. %s[%s](%s) (`%.4f` ms)\n", i+1, marker, origin, origin, e.Latency*1000)
	}
	return buf.String()
}

// FileMode is the permission of files written by WriteFile.
const FileMode os.FileMode = 0o644

// WriteFile writes data next to path and renames it into place, so readers of
// path only ever see a complete file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	// CreateTemp creates 0600 files
	if err := tmp.Chmod(FileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
