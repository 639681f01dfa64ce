// Package archive extracts unit blueprint files out of either a mod
// package archive (a renamed zip) or an already-unpacked install root, into
// a flat destination directory, so the scan collaborator never has to see
// archive formats or a mod's own directory layout directly.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// unitBlueprintSuffix is the filename pattern the collaborator extracts;
// matching is by suffix against the entry's (or file's) base name.
const unitBlueprintSuffix = "_unit.bp"

// ExtractUnitBlueprints locates every "*_unit.bp" file under archivePath
// and copies it into destDir, flattening directory structure (entries
// sharing a base name collide; the later one encountered wins). archivePath
// may be either a zip-format package archive or an already-extracted
// install root directory — the two are told apart by os.Stat, matching how
// a mod can be distributed either way. Returns the list of files written,
// in the order they were extracted.
func ExtractUnitBlueprints(archivePath, destDir string) ([]string, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", archivePath, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination directory %q: %w", destDir, err)
	}

	if info.IsDir() {
		return extractFromDir(archivePath, destDir)
	}
	return extractFromZip(archivePath, destDir)
}

func extractFromZip(archivePath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", archivePath, err)
	}
	defer r.Close()

	var written []string
	for _, f := range r.File {
		name := filepath.Base(filepath.ToSlash(f.Name))
		if !isUnitBlueprintName(name) {
			continue
		}
		if f.FileInfo().IsDir() {
			continue
		}

		destPath := filepath.Join(destDir, name)
		if err := extractOne(f, destPath); err != nil {
			return written, fmt.Errorf("extract %q: %w", f.Name, err)
		}
		written = append(written, destPath)
	}

	return written, nil
}

// extractFromDir walks an already-unpacked install root the same way
// pkg/scan's discover walks a scan root, copying every matching file found
// into the flat destination directory.
func extractFromDir(root, destDir string) ([]string, error) {
	var written []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !isUnitBlueprintName(name) {
			return nil
		}

		destPath := filepath.Join(destDir, name)
		if err := copyFile(path, destPath); err != nil {
			return fmt.Errorf("extract %q: %w", path, err)
		}
		written = append(written, destPath)
		return nil
	})
	if walkErr != nil {
		return written, fmt.Errorf("walking %q: %w", root, walkErr)
	}
	return written, nil
}

func isUnitBlueprintName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), unitBlueprintSuffix)
}

func extractOne(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("copy entry contents: %w", err)
	}
	return nil
}

func copyFile(srcPath, destPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy file contents: %w", err)
	}
	return nil
}
