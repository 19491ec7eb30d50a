// Package qc finds quality-control documents that still need attention.
//
// A study folder is any directory holding metadata/checklist.csv. The
// checklist maps QC document names to sign-off comments; a document with no
// comment hasn't been reviewed yet. Phantom sessions are skipped.
package qc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Kind classifies a finding.
type Kind string

const (
	// MissingEntry means the timepoint has no checklist line at all.
	MissingEntry Kind = "missing-entry"
	// MissingDoc means the checklist names a QC doc that was never generated.
	MissingDoc Kind = "missing-doc"
	// Unsigned means the QC doc exists but has no sign-off comment.
	Unsigned Kind = "unsigned"
	// Stale means data in the timepoint folder is newer than its QC doc.
	Stale Kind = "stale"
)

// Finding is one QC item needing attention.
type Finding struct {
	Kind      Kind
	Study     string
	Timepoint string
	// Path is the QC doc (or the timepoint folder when no doc exists).
	Path string
	// Newer lists data files more recent than the QC doc, for Stale findings.
	Newer []string
}

func (f Finding) String() string {
	switch f.Kind {
	case MissingEntry:
		return fmt.Sprintf("No checklist entry for %s", f.Path)
	case MissingDoc:
		return fmt.Sprintf("No QC doc generated for %s", f.Path)
	case Stale:
		return fmt.Sprintf("%s: QC doc is older than data (%d newer files)", f.Path, len(f.Newer))
	default:
		return fmt.Sprintf("%s: QC doc not signed off on", f.Path)
	}
}

// Options configure a Todo scan.
type Options struct {
	// Root is the parent folder of all study folders.
	Root string
	// ShowNewer adds Stale findings for QC docs older than their data.
	ShowNewer bool
	// MaxDepth bounds the study search below Root. Zero means 2.
	MaxDepth int
}

const checklistRelPath = "metadata/checklist.csv"

// Todo scans every study below opts.Root and returns findings in study then
// timepoint order. Studies are scanned concurrently.
func Todo(fsys afero.Fs, opts Options) ([]Finding, error) {
	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = 2
	}

	studies, err := findStudies(fsys, opts.Root, maxDepth)
	if err != nil {
		return nil, err
	}

	perStudy := make([][]Finding, len(studies))
	var group errgroup.Group
	for i, study := range studies {
		i, study := i, study
		group.Go(func() error {
			findings, err := scanStudy(fsys, study, opts.ShowNewer)
			if err != nil {
				return fmt.Errorf("study %s: %w", study, err)
			}
			perStudy[i] = findings
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var out []Finding
	for _, findings := range perStudy {
		out = append(out, findings...)
	}
	return out, nil
}

// findStudies returns directories below root holding a checklist, in sorted
// order. Matches don't get descended into.
func findStudies(fsys afero.Fs, root string, maxDepth int) ([]string, error) {
	var studies []string
	rootDepth := strings.Count(filepath.Clean(root), string(os.PathSeparator))

	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		if ok, _ := afero.Exists(fsys, filepath.Join(path, checklistRelPath)); ok {
			studies = append(studies, path)
			return filepath.SkipDir
		}

		depth := strings.Count(filepath.Clean(path), string(os.PathSeparator)) - rootDepth
		if depth >= maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(studies)
	return studies, nil
}

func scanStudy(fsys afero.Fs, studyDir string, showNewer bool) ([]Finding, error) {
	checklist, err := readChecklist(fsys, filepath.Join(studyDir, checklistRelPath))
	if err != nil {
		return nil, err
	}

	study := filepath.Base(studyDir)
	timepointDirs, err := afero.Glob(fsys, filepath.Join(studyDir, "data", "nii", "*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(timepointDirs)

	var findings []Finding
	for _, timepointDir := range timepointDirs {
		if strings.Contains(timepointDir, "_PHA_") {
			continue
		}

		timepoint := filepath.Base(timepointDir)
		docName := "qc_" + timepoint + ".html"
		docPath := filepath.Join(studyDir, "qc", timepoint, docName)

		comment, hasEntry := checklist[docName]
		if !hasEntry {
			findings = append(findings, Finding{Kind: MissingEntry, Study: study, Timepoint: timepoint, Path: timepointDir})
			continue
		}

		docInfo, err := fsys.Stat(docPath)
		if err != nil {
			findings = append(findings, Finding{Kind: MissingDoc, Study: study, Timepoint: timepoint, Path: timepointDir})
			continue
		}

		if showNewer {
			newer, err := newerData(fsys, timepointDir, docInfo.ModTime())
			if err != nil {
				return nil, err
			}
			if len(newer) > 0 {
				findings = append(findings, Finding{Kind: Stale, Study: study, Timepoint: timepoint, Path: docPath, Newer: newer})
			}
		}

		if comment == "" {
			findings = append(findings, Finding{Kind: Unsigned, Study: study, Timepoint: timepoint, Path: docPath})
		}
	}

	return findings, nil
}

// readChecklist parses checklist.csv: one QC doc name per line, optionally
// followed by a sign-off comment. Legacy .pdf entries also cover their .html
// counterparts.
func readChecklist(fsys afero.Fs, path string) (map[string]string, error) {
	fd, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	entries := make(map[string]string)
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		entries[fields[0]] = strings.Join(fields[1:], " ")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for name, comment := range entries {
		if strings.HasSuffix(name, ".pdf") {
			htmlName := strings.TrimSuffix(name, ".pdf") + ".html"
			if _, ok := entries[htmlName]; !ok {
				entries[htmlName] = comment
			}
		}
	}
	return entries, nil
}

// newerData returns files in dir modified after cutoff, sorted.
func newerData(fsys afero.Fs, dir string, cutoff time.Time) ([]string, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var newer []string
	for _, info := range infos {
		if info.ModTime().After(cutoff) {
			newer = append(newer, filepath.Join(dir, info.Name()))
		}
	}
	sort.Strings(newer)
	return newer, nil
}
