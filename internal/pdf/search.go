package pdf

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/form-copilot/internal/apperrors"
)

// FileInfo describes a PDF found on disk
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// SearchResult lists the PDFs of a directory matching a query
type SearchResult struct {
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
	TotalCount  int        `json:"total_count"`
	Files       []FileInfo `json:"files"`
}

// Search finds candidate forms in a directory tree
type Search struct {
	validator *Validator
}

func NewSearch(maxFileSize int64) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
	}
}

// FindForms walks directory and returns the PDFs whose name matches query.
// Files that fail the size and extension checks are skipped, as are
// symlinks.
func (s *Search) FindForms(directory, query string) (*SearchResult, error) {
	if directory == "" {
		return nil, apperrors.New(apperrors.KindInvalidRequest, "directory cannot be empty")
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidRequest, err, "failed to resolve directory path")
	}

	info, err := os.Stat(absDirectory)
	if os.IsNotExist(err) {
		return nil, apperrors.Newf(apperrors.KindNotFound, "directory does not exist: %s", directory)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "cannot access directory")
	}
	if !info.IsDir() {
		return nil, apperrors.Newf(apperrors.KindInvalidRequest, "not a directory: %s", directory)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	files := []FileInfo{}

	err = filepath.WalkDir(absDirectory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped
			return nil
		}

		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		if !isPDFFile(d.Name()) || !matchesQuery(d.Name(), q) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}

		if err := s.validator.ValidateFileInfo(path, fi); err != nil {
			return nil
		}

		files = append(files, FileInfo{
			Path:         path,
			Name:         d.Name(),
			Size:         fi.Size(),
			ModifiedTime: fi.ModTime().Format("2006-01-02 15:04:05"),
		})
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "error walking directory")
	}

	return &SearchResult{
		Directory:   absDirectory,
		SearchQuery: query,
		TotalCount:  len(files),
		Files:       files,
	}, nil
}

func isPDFFile(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// matchesQuery performs fuzzy matching on the filename: either the query is
// a substring of the name, or every query word is contained in some word of
// the name
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	name := strings.ToLower(filename)
	if strings.Contains(name, query) {
		return true
	}

	words := splitIntoWords(strings.TrimSuffix(name, ".pdf"))
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// splitIntoWords splits a string into lowercase words using common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return strings.ContainsRune(" _-.()[]", r)
	})
}
