// Package catalog loads a directory of lab scenarios, one descriptor per
// subdirectory, and serves them by name.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/ethpandaops/labdesc/pkg/descriptor"
	"github.com/ethpandaops/labdesc/pkg/types"
)

// Entry is one scenario found in the catalog root.
type Entry struct {
	// Name is the scenario directory name.
	Name string
	// Path is the descriptor file path.
	Path       string
	Descriptor *types.LabDescriptor
}

// Summary returns the condensed view of the entry.
func (e Entry) Summary() types.ScenarioSummary {
	return types.ScenarioSummary{
		Name:        e.Name,
		Title:       e.Descriptor.Title,
		Description: e.Descriptor.Description,
		ImageID:     e.Descriptor.Backend.ImageID,
		Steps:       len(e.Descriptor.Details.Steps),
	}
}

// ScanError ties a load failure to its scenario.
type ScanError struct {
	Scenario string
	Err      error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scenario %s: %v", e.Scenario, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scan loads every immediate subdirectory of root that contains
// descriptorName. Directories without the descriptor are skipped. It returns
// the scenarios that loaded, in directory order, and an aggregate of every
// scenario that failed.
func Scan(root, descriptorName string) ([]Entry, error) {
	if descriptorName == "" {
		descriptorName = descriptor.DefaultFileName
	}

	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading catalog root %s: %w", root, err)
	}

	var (
		entries []Entry
		errs    []error
	)

	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}

		path := filepath.Join(root, dir.Name(), descriptorName)

		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		d, err := descriptor.Load(path)
		if err != nil {
			errs = append(errs, &ScanError{Scenario: dir.Name(), Err: err})

			continue
		}

		entries = append(entries, Entry{Name: dir.Name(), Path: path, Descriptor: d})
	}

	return entries, utilerrors.NewAggregate(errs)
}
