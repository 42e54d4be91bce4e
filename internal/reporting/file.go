package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFile writes data to path through a temp file and rename.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Report output file names.
const (
	ReportFileName       = "DATASET_REPORT.md"
	DistributionFileName = "label_distribution.csv"
)

// WriteReport writes the Markdown report and the label distribution CSV into
// dir and returns their paths.
func WriteReport(dir string, r *Report) ([]string, error) {
	files := []struct {
		name string
		data string
	}{
		{ReportFileName, RenderMarkdown(r)},
		{DistributionFileName, RenderDistributionCSV(r.Datasets)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, []byte(f.data)); err != nil {
			return paths, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
