// Package drift compares the loaded model against the repository's
// actual state and reports what the model no longer knows about. It
// never mutates the model; reconciling drift means re-running the
// upstream bootstrap pipeline.
package drift

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"cim/internal/config"
	cimerrors "cim/internal/errors"
	"cim/internal/model"
)

// Detector reports new, deleted, and size-drifted files relative to
// the model. Each Detect call reads the filesystem or VCS fresh; no
// state is cached between calls.
type Detector struct {
	model  *model.Model
	cfg    config.DriftConfig
	logger *slog.Logger
}

// NewDetector creates a detector over a loaded model.
func NewDetector(m *model.Model, cfg config.DriftConfig, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{model: m, cfg: cfg, logger: logger}
}

// Options control a single drift detection run.
type Options struct {
	// RepoRoot is the repository to compare against.
	RepoRoot string

	// SinceRef compares against a git reference instead of the
	// working tree when non-empty.
	SinceRef string

	// ThresholdPercent overrides the configured drift threshold
	// when positive.
	ThresholdPercent float64
}

// DriftedFile is a file present in both model and repository whose
// size moved past the threshold.
type DriftedFile struct {
	Path         string  `json:"path"`
	ModelSize    int     `json:"modelSize"`
	ActualSize   int     `json:"actualSize"`
	DriftPercent float64 `json:"driftPercent"`
}

// Summary aggregates the bucket counts of a report.
type Summary struct {
	ModelArtifacts   int     `json:"modelArtifacts"`
	FilesScanned     int     `json:"filesScanned"`
	New              int     `json:"new"`
	Deleted          int     `json:"deleted"`
	Drifted          int     `json:"drifted"`
	ThresholdPercent float64 `json:"thresholdPercent"`
	Ref              string  `json:"ref,omitempty"`
}

// Report is the outcome of one drift detection run. Buckets are
// sorted by path so identical inputs produce identical reports.
type Report struct {
	NewFiles     []string      `json:"newFiles"`
	DeletedFiles []string      `json:"deletedFiles"`
	DriftedFiles []DriftedFile `json:"driftedFiles"`
	Summary      Summary       `json:"summary"`
}

// Clean reports whether the run found no drift at all.
func (r *Report) Clean() bool {
	return len(r.NewFiles) == 0 && len(r.DeletedFiles) == 0 && len(r.DriftedFiles) == 0
}

// Table renders the report rows for tabular output.
func (r *Report) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.NewFiles)+len(r.DeletedFiles)+len(r.DriftedFiles))
	for _, p := range r.NewFiles {
		rows = append(rows, []string{"new", p, "", "", ""})
	}
	for _, p := range r.DeletedFiles {
		rows = append(rows, []string{"deleted", p, "", "", ""})
	}
	for _, d := range r.DriftedFiles {
		rows = append(rows, []string{
			"drifted", d.Path,
			strconv.Itoa(d.ModelSize), strconv.Itoa(d.ActualSize),
			strconv.FormatFloat(d.DriftPercent, 'f', 1, 64) + "%",
		})
	}
	return []string{"STATUS", "PATH", "MODEL", "ACTUAL", "DRIFT"}, rows
}

// PathList renders every affected path for paths output.
func (r *Report) PathList() []string {
	paths := make([]string, 0, len(r.NewFiles)+len(r.DeletedFiles)+len(r.DriftedFiles))
	paths = append(paths, r.NewFiles...)
	paths = append(paths, r.DeletedFiles...)
	for _, d := range r.DriftedFiles {
		paths = append(paths, d.Path)
	}
	return paths
}

// Detect compares every model artifact against the repository state
// and scans for files the model has never seen.
func (d *Detector) Detect(ctx context.Context, opts Options) (*Report, error) {
	root := opts.RepoRoot
	if root == "" {
		root = "."
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, cimerrors.NewValidationError("repoRoot", "not a directory: "+root)
	}

	threshold := opts.ThresholdPercent
	if threshold <= 0 {
		threshold = d.cfg.ThresholdPercent
	}

	var snap *snapshot
	var err error
	if opts.SinceRef != "" {
		snap, err = d.gitSnapshot(ctx, root, opts.SinceRef)
	} else {
		snap, err = d.workingTreeSnapshot(root)
	}
	if err != nil {
		return nil, err
	}

	report := &Report{
		NewFiles:     []string{},
		DeletedFiles: []string{},
		DriftedFiles: []DriftedFile{},
	}

	modelPaths := make(map[string]bool, len(d.model.Artifacts))
	for _, p := range d.model.AllPaths() {
		modelPaths[p] = true
		a, _ := d.model.ArtifactByPath(p)

		actual, exists := snap.size(ctx, p)
		if !exists {
			report.DeletedFiles = append(report.DeletedFiles, p)
			continue
		}
		pct, drifted := driftPercent(a.Size, actual, threshold)
		if drifted {
			report.DriftedFiles = append(report.DriftedFiles, DriftedFile{
				Path:         p,
				ModelSize:    a.Size,
				ActualSize:   actual,
				DriftPercent: pct,
			})
		}
	}

	// Every visible file the model has never seen is new, whatever
	// its extension: the first .ts file in a .js model must surface.
	for _, p := range snap.paths {
		if modelPaths[p] {
			continue
		}
		report.NewFiles = append(report.NewFiles, p)
	}

	sort.Strings(report.NewFiles)
	sort.Strings(report.DeletedFiles)
	sort.Slice(report.DriftedFiles, func(i, j int) bool {
		return report.DriftedFiles[i].Path < report.DriftedFiles[j].Path
	})

	report.Summary = Summary{
		ModelArtifacts:   len(d.model.Artifacts),
		FilesScanned:     len(snap.paths),
		New:              len(report.NewFiles),
		Deleted:          len(report.DeletedFiles),
		Drifted:          len(report.DriftedFiles),
		ThresholdPercent: threshold,
		Ref:              opts.SinceRef,
	}
	return report, nil
}

// driftPercent returns the relative size change and whether it
// crosses the threshold. A file the model recorded as empty that now
// has content counts as fully drifted.
func driftPercent(modelSize, actualSize int, threshold float64) (float64, bool) {
	if modelSize == actualSize {
		return 0, false
	}
	var pct float64
	if modelSize == 0 {
		pct = 100
	} else {
		diff := actualSize - modelSize
		if diff < 0 {
			diff = -diff
		}
		pct = float64(diff) / float64(modelSize) * 100
	}
	return pct, pct > threshold
}

// snapshot is one view of the repository: the visible file paths plus
// a size lookup. Sizes are resolved lazily, only for model paths.
type snapshot struct {
	paths  []string
	exists map[string]bool
	sizeFn func(ctx context.Context, path string) (int, bool)
}

func (s *snapshot) size(ctx context.Context, path string) (int, bool) {
	if !s.exists[path] {
		return 0, false
	}
	return s.sizeFn(ctx, path)
}

// workingTreeSnapshot walks the repository, honoring .gitignore and
// skipping the .git and model directories.
func (d *Detector) workingTreeSnapshot(root string) (*snapshot, error) {
	var matcher *ignore.GitIgnore
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		matcher = gi
	}

	snap := &snapshot{exists: make(map[string]bool)}
	err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if entry.IsDir() {
			if entry.Name() == ".git" || entry.Name() == config.ModelDirName {
				return filepath.SkipDir
			}
			if matcher != nil && rel != "." && matcher.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		snap.paths = append(snap.paths, rel)
		snap.exists[rel] = true
		return nil
	})
	if err != nil {
		return nil, cimerrors.NewInternalError("walk repository", err)
	}

	snap.sizeFn = func(_ context.Context, path string) (int, bool) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
		if err != nil {
			return 0, false
		}
		return countLines(data), true
	}
	return snap, nil
}

// gitSnapshot lists the tree at a reference and resolves sizes with
// git show, so drift can be measured against a past commit.
func (d *Detector) gitSnapshot(ctx context.Context, root, ref string) (*snapshot, error) {
	out, err := gitOutput(ctx, root, "ls-tree", "-r", "--name-only", ref)
	if err != nil {
		return nil, cimerrors.NewValidationError("since", "cannot resolve git reference "+ref)
	}

	snap := &snapshot{exists: make(map[string]bool)}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		snap.paths = append(snap.paths, line)
		snap.exists[line] = true
	}

	snap.sizeFn = func(ctx context.Context, path string) (int, bool) {
		content, err := gitOutput(ctx, root, "show", ref+":"+path)
		if err != nil {
			d.logger.Debug("git show failed", "ref", ref, "path", path, "error", err)
			return 0, false
		}
		return countLines([]byte(content)), true
	}
	return snap, nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// countLines counts lines the way editors do: a trailing fragment
// without a newline still counts.
func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}
