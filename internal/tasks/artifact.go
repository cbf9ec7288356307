package tasks

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/modlingo/modlingo/internal/models"
)

// packageArtifact zips the task's deliverables next to the output file. The
// archive carries the translated output and, outside review mode, the
// original backup when the worker produced one.
func (o *Orchestrator) packageArtifact(task *models.Task) (string, error) {
	archivePath := filepath.Join(filepath.Dir(task.OutputPath()), archiveName(task))

	zipFile, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	if err := addFileToZip(zipWriter, task.OutputPath(), task.Filename()); err != nil {
		os.Remove(archivePath)
		return "", err
	}

	if task.ReviewMode() == models.ReviewDirect &&
		task.BackupPath() != "" && fileExists(task.BackupPath()) {
		backupName := "original_" + task.Filename()
		if err := addFileToZip(zipWriter, task.BackupPath(), backupName); err != nil {
			o.logger.Warn("failed to include backup in archive", "task", task.ID(), "err", err)
		}
	}

	return archivePath, nil
}

// addFileToZip copies one file into the archive under the given name.
func addFileToZip(w *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	dst, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write %s into archive: %w", name, err)
	}

	return nil
}

// archiveName derives the artifact name from the task's display filename.
func archiveName(task *models.Task) string {
	stem := strings.TrimSuffix(task.Filename(), filepath.Ext(task.Filename()))
	if stem == "" {
		stem = task.ID()
	}
	return stem + ".zip"
}

// artifactKey is the task-scoped object storage key for the archive.
func artifactKey(task *models.Task) string {
	return "tasks/" + task.ID() + "/" + archiveName(task)
}

// removeLocalFiles deletes every local temporary the task may have left
// behind: recorded paths plus defensively derived backup/translated pattern
// paths. Failures are logged and never propagate; a stuck file must not
// block a status transition.
func (o *Orchestrator) removeLocalFiles(task *models.Task) {
	paths := []string{
		task.SourcePath(),
		task.BackupPath(),
		task.OutputPath(),
	}
	paths = append(paths, derivedPaths(task.SourcePath())...)
	if task.OutputPath() != "" {
		paths = append(paths, filepath.Join(filepath.Dir(task.OutputPath()), archiveName(task)))
	}

	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.logger.Warn("failed to remove local file", "task", task.ID(), "path", path, "err", err)
		}
	}
}

// derivedPaths lists the backup and translated file names the worker derives
// from a source path, so cleanup still works when a report never told us
// where those files ended up.
func derivedPaths(sourcePath string) []string {
	if sourcePath == "" {
		return nil
	}

	ext := filepath.Ext(sourcePath)
	stem := strings.TrimSuffix(sourcePath, ext)

	return []string{
		sourcePath + ".bak",
		stem + ".translated" + ext,
		stem + ".original" + ext,
	}
}

// CleanOrphanedArchives removes archives in the work dir older than the
// retention window. Tasks that completed normally delete their archive right
// after upload; anything left behind is the residue of a crash mid-pipeline.
func (o *Orchestrator) CleanOrphanedArchives() int {
	if o.retention <= 0 {
		return 0
	}

	pattern := filepath.Join(o.workDir, "tasks", "*", "*.zip")
	files, err := filepath.Glob(pattern)
	if err != nil {
		o.logger.Error("archive cleanup error", "err", err)
		return 0
	}

	cutoff := time.Now().Add(-o.retention)
	cleaned := 0

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(f); err != nil {
				o.logger.Warn("failed to remove orphaned archive", "path", f, "err", err)
			} else {
				cleaned++
			}
		}
	}

	if cleaned > 0 {
		o.logger.Info("cleaned up orphaned archives", "count", cleaned)
	}
	return cleaned
}
