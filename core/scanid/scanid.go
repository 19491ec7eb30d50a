// Package scanid parses and formats session and series identifiers.
//
// Sessions follow the naming scheme:
//
//	<study>_<site>_<subject>_<timepoint>_<session>
//
// for example SPN01_CMH_0001_01_01. Exported series files add a tag, series
// number and mangled description:
//
//	<scanid>_<tag>_<series>_<description>.<ext>
//
// for example SPN01_CMH_0001_01_01_T1_11_Sag-T1-BRAVO.nii.gz.
package scanid

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidScanID is returned when a name doesn't follow the session
// naming scheme.
var ErrInvalidScanID = errors.New("invalid scan ID")

// ErrInvalidFilename is returned when a series filename doesn't follow the
// export naming scheme.
var ErrInvalidFilename = errors.New("invalid series filename")

// PhantomSubjectPrefix marks phantom scans, which are excluded from QC.
const PhantomSubjectPrefix = "PHA"

var (
	scanIDRe = regexp.MustCompile(`^([A-Z0-9]+)_([A-Z]+)_([A-Za-z0-9]+)_([0-9]+)_([0-9]+)$`)

	// tag is uppercase alphanumeric with optional dashes (e.g. T1, DTI-60,
	// b4500), series is numeric, description is free-form.
	filenameRe = regexp.MustCompile(`^((?:[A-Z0-9]+)_(?:[A-Z]+)_(?:[A-Za-z0-9]+)_(?:[0-9]+)_(?:[0-9]+))_([A-Za-z0-9-]+)_([0-9]+)_(.+?)(\.[^_]*)?$`)
)

// ScanID identifies a single scan session.
type ScanID struct {
	Study     string
	Site      string
	Subject   string
	Timepoint string
	Session   string
}

// Parse parses a session name like SPN01_CMH_0001_01_01.
func Parse(name string) (ScanID, error) {
	match := scanIDRe.FindStringSubmatch(name)
	if match == nil {
		return ScanID{}, fmt.Errorf("%w: %q", ErrInvalidScanID, name)
	}

	return ScanID{
		Study:     match[1],
		Site:      match[2],
		Subject:   match[3],
		Timepoint: match[4],
		Session:   match[5],
	}, nil
}

// IsScanID reports whether name follows the session naming scheme.
func IsScanID(name string) bool {
	return scanIDRe.MatchString(name)
}

func (s ScanID) String() string {
	return strings.Join([]string{s.Study, s.Site, s.Subject, s.Timepoint, s.Session}, "_")
}

// SubjectID returns the cross-session subject folder name,
// e.g. SPN01_CMH_0001.
func (s ScanID) SubjectID() string {
	return strings.Join([]string{s.Study, s.Site, s.Subject}, "_")
}

// TimepointID returns the per-timepoint name used for QC documents,
// e.g. SPN01_CMH_0001_01.
func (s ScanID) TimepointID() string {
	return strings.Join([]string{s.Study, s.Site, s.Subject, s.Timepoint}, "_")
}

// IsPhantom reports whether the session is a phantom scan.
func (s ScanID) IsPhantom() bool {
	return strings.HasPrefix(s.Subject, PhantomSubjectPrefix)
}

// Filename is a parsed exported series filename.
type Filename struct {
	ScanID      ScanID
	Tag         string
	Series      string
	Description string
	Ext         string
}

// ParseFilename parses an exported series filename like
// SPN01_CMH_0001_01_01_T1_11_Sag-T1-BRAVO.nii.gz.
func ParseFilename(name string) (Filename, error) {
	match := filenameRe.FindStringSubmatch(name)
	if match == nil {
		return Filename{}, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	id, err := Parse(match[1])
	if err != nil {
		return Filename{}, err
	}

	return Filename{
		ScanID:      id,
		Tag:         match[2],
		Series:      match[3],
		Description: match[4],
		Ext:         match[5],
	}, nil
}

func (f Filename) String() string {
	return strings.Join([]string{f.ScanID.String(), f.Tag, f.Series, f.Description}, "_") + f.Ext
}
