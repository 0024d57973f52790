// Package export writes analysis results as human-readable JSON to files or
// the clipboard and tells the user what happened.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pharmaguard-client/internal/domain"
)

const (
	// AllResultsFileName is the file name used when exporting a whole result set.
	AllResultsFileName = "pharmaguard_all_results.json"

	MsgCopied     = "JSON copied to clipboard"
	MsgCopyFailed = "Copy failed, please try again"
)

// DownloadedMessage is the notification shown after a file is written.
func DownloadedMessage(fileName string) string {
	return "Downloaded " + fileName
}

// Marshal renders v as JSON indented by two spaces. Results keep every field
// the service sent.
func Marshal(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// ResultFileName names the export of a single result after its drug.
func ResultFileName(result domain.AnalysisResult) string {
	name := result.Drug
	if name == "" {
		name = "result"
	}
	// Drug names come from the service; keep them inside the export directory.
	name = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(name)
	return "pharmaguard_" + name + ".json"
}

// ResultFileNames names the per-result exports of one batch. A name already
// taken in the batch, including the whole-set export, gets the result's
// 1-based position appended.
func ResultFileNames(results []domain.AnalysisResult) []string {
	used := map[string]bool{AllResultsFileName: true}
	names := make([]string, len(results))
	for i, result := range results {
		name := ResultFileName(result)
		if used[name] {
			base := strings.TrimSuffix(name, ".json")
			name = fmt.Sprintf("%s_%d.json", base, i+1)
			for n := 2; used[name]; n++ {
				name = fmt.Sprintf("%s_%d_%d.json", base, i+1, n)
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// Exporter writes exports into a directory and copies them to a clipboard.
type Exporter struct {
	dir       string
	notifier  domain.Notifier
	clipboard domain.Clipboard
}

// NewExporter creates an exporter. clipboard may be nil when copying is not
// supported; notifier may be nil to stay silent.
func NewExporter(dir string, notifier domain.Notifier, clipboard domain.Clipboard) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{dir: dir, notifier: notifier, clipboard: clipboard}
}

// DownloadResult writes one result and returns the file path.
func (e *Exporter) DownloadResult(result domain.AnalysisResult) (string, error) {
	return e.download(ResultFileName(result), result)
}

// DownloadEach writes every result to its own file and returns the paths in
// result order. Names never overwrite each other within the batch.
func (e *Exporter) DownloadEach(results []domain.AnalysisResult) ([]string, error) {
	names := ResultFileNames(results)
	paths := make([]string, 0, len(results))
	for i, result := range results {
		path, err := e.download(names[i], result)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// DownloadAll writes the whole result set as a JSON array.
func (e *Exporter) DownloadAll(results []domain.AnalysisResult) (string, error) {
	if results == nil {
		results = []domain.AnalysisResult{}
	}
	return e.download(AllResultsFileName, results)
}

// CopyResult copies one result to the clipboard.
func (e *Exporter) CopyResult(result domain.AnalysisResult) error {
	return e.copy(result)
}

// CopyAll copies the whole result set to the clipboard.
func (e *Exporter) CopyAll(results []domain.AnalysisResult) error {
	if results == nil {
		results = []domain.AnalysisResult{}
	}
	return e.copy(results)
}

func (e *Exporter) download(fileName string, v interface{}) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.dir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	e.notify(DownloadedMessage(fileName))
	return path, nil
}

func (e *Exporter) copy(v interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		e.notify(MsgCopyFailed)
		return err
	}
	if e.clipboard == nil {
		e.notify(MsgCopyFailed)
		return fmt.Errorf("no clipboard available")
	}
	if err := e.clipboard.WriteText(string(data)); err != nil {
		e.notify(MsgCopyFailed)
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	e.notify(MsgCopied)
	return nil
}

func (e *Exporter) notify(msg string) {
	if e.notifier != nil {
		e.notifier.Show(msg)
	}
}
