package qython

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qython-lang/qython/internal/config"
)

var update = flag.Bool("update", false, "rewrite testdata/*.golden from current output")

// TestGoldenFiles compiles every testdata/*.qy and compares the q text
// with the matching .golden file.
func TestGoldenFiles(t *testing.T) {
	inputs, err := filepath.Glob(filepath.Join("testdata", "*.qy"))
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) == 0 {
		t.Fatal("no golden inputs found")
	}

	for _, input := range inputs {
		name := strings.TrimSuffix(filepath.Base(input), ".qy")
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(input)
			if err != nil {
				t.Fatal(err)
			}

			out, diag := CompileFile(input, string(src), config.Default())
			if diag != nil {
				t.Fatalf("Compilation failed: %v", diag)
			}

			goldenPath := strings.TrimSuffix(input, ".qy") + ".golden"
			if *update {
				if err := os.WriteFile(goldenPath, []byte(out), 0644); err != nil {
					t.Fatalf("Failed to update golden file: %v", err)
				}
				t.Logf("Updated golden file: %s", goldenPath)
				return
			}

			want, err := os.ReadFile(goldenPath)
			if err != nil {
				t.Fatalf("Failed to read golden file: %v", err)
			}
			if out != string(want) {
				t.Errorf("Output differs from golden file %s", goldenPath)
				t.Errorf("Expected:\n%s", want)
				t.Errorf("Actual:\n%s", out)
			}
		})
	}
}
