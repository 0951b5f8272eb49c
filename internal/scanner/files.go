// Package scanner finds audio files inside playlist folders and probes them
// for duration and tags.
package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SupportedExtensions are the audio file extensions we recognize
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".wma":  true,
	".aiff": true,
	".aif":  true,
	".m4a":  true,
	".opus": true,
}

// IsAudioFile reports whether name has a supported extension (case-insensitive)
func IsAudioFile(name string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// ListAudioFiles returns the audio files below folder as slash-separated
// paths relative to folder, sorted with SortFilenames. Hidden directories
// are skipped. A missing folder returns an error matching fs.ErrNotExist.
func ListAudioFiles(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "scan", Path: folder, Err: errors.New("not a directory")}
	}

	var files []string
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == folder {
				return err
			}
			return nil // Skip entries we can't access
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != folder {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") || !IsAudioFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(folder, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	SortFilenames(files)
	return files, nil
}

// SortFilenames sorts names case-insensitively, falling back to a byte
// comparison so the order is total
func SortFilenames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
}
