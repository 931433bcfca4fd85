package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

func TestJSON_KeepsRankingOrder(t *testing.T) {
	ranking := domain.Ranking{
		{Endpoint: "zeta.example", Latency: 0.05},
		{Endpoint: "alpha.example", Latency: 0.1},
	}

	out := string(JSON(ranking))
	expected := "{\n" +
		"    \"https://zeta.example\": 0.05,\n" +
		"    \"https://alpha.example\": 0.1\n" +
		"}\n"
	assert.Equal(t, expected, out)

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 0.1, decoded["https://alpha.example"])
}

func TestJSON_Empty(t *testing.T) {
	assert.Equal(t, "{}\n", string(JSON(nil)))
}

func TestJSON_NonFinite(t *testing.T) {
	out := JSON(domain.Ranking{{Endpoint: "a", Latency: math.NaN()}})
	var decoded map[string]*float64
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Nil(t, decoded["https://a"])
}

func TestMarkdown(t *testing.T) {
	md := Markdown(domain.Ranking{
		{Endpoint: "a.example", Latency: 0.0123456},
		{Endpoint: "b.example", Latency: 0.2},
	})

	lines := strings.Split(strings.TrimSpace(md), "\n")
	assert.Equal(t, "# Best Mirrors", lines[0])
	assert.Equal(t, "1. 🚀 [https://a.example](https://a.example) (`12.3456` ms)", lines[len(lines)-2])
	assert.Equal(t, "2. [https://b.example](https://b.example) (`200.0000` ms)", lines[len(lines)-1])
}

func TestMarkdown_Empty(t *testing.T) {
	assert.Contains(t, Markdown(domain.Ranking{}), "No mirror qualified")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".cache.json")

	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFile_ReadableByOthers(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	path := filepath.Join(t.TempDir(), "index.md")

	require.NoError(t, WriteFile(path, []byte("# Best Mirrors\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}

func TestWriteFile_MissingDir(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "nope", "x.json"), []byte("x"))
	assert.Error(t, err)
}
