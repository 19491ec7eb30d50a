package qc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fsys afero.Fs, path, contents string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte(contents), 0644))
}

func newStudyFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()

	writeFile(t, fsys, "/archive/SPINS/metadata/checklist.csv",
		"qc_SPN01_CMH_0001_01.html signed off ok\n"+
			"qc_SPN01_CMH_0002_01.html\n"+
			"qc_SPN01_CMH_0003_01.pdf reviewed\n"+
			"qc_SPN01_CMH_0005_01.html\n")

	// Reviewed, doc present.
	writeFile(t, fsys, "/archive/SPINS/data/nii/SPN01_CMH_0001_01/SPN01_CMH_0001_01_01_T1_11_t1.nii.gz", "x")
	writeFile(t, fsys, "/archive/SPINS/qc/SPN01_CMH_0001_01/qc_SPN01_CMH_0001_01.html", "qc")

	// Doc present but never signed off.
	writeFile(t, fsys, "/archive/SPINS/data/nii/SPN01_CMH_0002_01/SPN01_CMH_0002_01_01_T1_11_t1.nii.gz", "x")
	writeFile(t, fsys, "/archive/SPINS/qc/SPN01_CMH_0002_01/qc_SPN01_CMH_0002_01.html", "qc")

	// Signed off through a legacy .pdf checklist entry.
	writeFile(t, fsys, "/archive/SPINS/data/nii/SPN01_CMH_0003_01/SPN01_CMH_0003_01_01_T1_11_t1.nii.gz", "x")
	writeFile(t, fsys, "/archive/SPINS/qc/SPN01_CMH_0003_01/qc_SPN01_CMH_0003_01.html", "qc")

	// No checklist entry at all.
	writeFile(t, fsys, "/archive/SPINS/data/nii/SPN01_CMH_0004_01/SPN01_CMH_0004_01_01_T1_11_t1.nii.gz", "x")

	// Checklist entry but the doc was never generated.
	writeFile(t, fsys, "/archive/SPINS/data/nii/SPN01_CMH_0005_01/SPN01_CMH_0005_01_01_T1_11_t1.nii.gz", "x")

	// Phantom sessions are never QC'd.
	writeFile(t, fsys, "/archive/SPINS/data/nii/SPN01_CMH_PHA_FBN0001/SPN01_CMH_PHA_FBN0001_T1_11_t1.nii.gz", "x")

	return fsys
}

func TestTodo(t *testing.T) {
	fsys := newStudyFs(t)

	findings, err := Todo(fsys, Options{Root: "/archive"})
	assert.NoError(t, err)

	var kinds []string
	for _, f := range findings {
		kinds = append(kinds, f.Timepoint+":"+string(f.Kind))
	}
	assert.Equal(t, []string{
		"SPN01_CMH_0002_01:unsigned",
		"SPN01_CMH_0004_01:missing-entry",
		"SPN01_CMH_0005_01:missing-doc",
	}, kinds)

	for _, f := range findings {
		assert.Equal(t, "SPINS", f.Study)
		assert.NotEmpty(t, f.String())
	}
}

func TestTodoShowNewer(t *testing.T) {
	fsys := newStudyFs(t)

	// Make the 0001 data more recent than its QC doc.
	docTime := time.Now().Add(-24 * time.Hour)
	dataTime := time.Now()
	require.NoError(t, fsys.Chtimes("/archive/SPINS/qc/SPN01_CMH_0001_01/qc_SPN01_CMH_0001_01.html", docTime, docTime))
	require.NoError(t, fsys.Chtimes("/archive/SPINS/data/nii/SPN01_CMH_0001_01/SPN01_CMH_0001_01_01_T1_11_t1.nii.gz", dataTime, dataTime))

	findings, err := Todo(fsys, Options{Root: "/archive", ShowNewer: true})
	assert.NoError(t, err)

	var stale []Finding
	for _, f := range findings {
		if f.Kind == Stale {
			stale = append(stale, f)
		}
	}
	require.Len(t, stale, 1)
	assert.Equal(t, "SPN01_CMH_0001_01", stale[0].Timepoint)
	assert.Equal(t, []string{"/archive/SPINS/data/nii/SPN01_CMH_0001_01/SPN01_CMH_0001_01_01_T1_11_t1.nii.gz"}, stale[0].Newer)
}

func TestTodoMultipleStudies(t *testing.T) {
	fsys := newStudyFs(t)

	writeFile(t, fsys, "/archive/ASDD/metadata/checklist.csv", "qc_ASDD_CMH_0001_01.html\n")
	writeFile(t, fsys, "/archive/ASDD/data/nii/ASDD_CMH_0001_01/scan.nii.gz", "x")
	writeFile(t, fsys, "/archive/ASDD/qc/ASDD_CMH_0001_01/qc_ASDD_CMH_0001_01.html", "qc")

	findings, err := Todo(fsys, Options{Root: "/archive"})
	assert.NoError(t, err)

	// Studies are reported in sorted order regardless of scan concurrency.
	assert.Equal(t, "ASDD", findings[0].Study)
	assert.Equal(t, "SPINS", findings[1].Study)
}

func TestFindStudiesDepthLimit(t *testing.T) {
	fsys := newStudyFs(t)

	// Too deep to be discovered with the default depth.
	writeFile(t, fsys, "/archive/extra/deep/STUDYX/metadata/checklist.csv", "")

	studies, err := findStudies(fsys, "/archive", 2)
	assert.NoError(t, err)
	assert.Equal(t, []string{"/archive/SPINS"}, studies)

	studies, err = findStudies(fsys, "/archive", 4)
	assert.NoError(t, err)
	assert.Contains(t, studies, "/archive/extra/deep/STUDYX")
}

func TestReadChecklist(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/checklist.csv",
		"qc_A_01.pdf looks fine\nqc_B_01.html\n\nqc_C_01.html needs repeat scan\n")

	entries, err := readChecklist(fsys, "/checklist.csv")
	assert.NoError(t, err)

	assert.Equal(t, "looks fine", entries["qc_A_01.pdf"])
	assert.Equal(t, "looks fine", entries["qc_A_01.html"])
	assert.Equal(t, "", entries["qc_B_01.html"])
	assert.Equal(t, "needs repeat scan", entries["qc_C_01.html"])
}
