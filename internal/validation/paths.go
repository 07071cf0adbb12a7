package validation

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ValidateRelPath validates a slash separated path that must stay below the
// directory it is resolved against, such as a template name or a page path.
func ValidateRelPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.ContainsRune(p, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}
	if path.IsAbs(p) || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return fmt.Errorf("absolute path not allowed: %s", p)
	}

	// Clean the path to resolve any . or .. components
	clean := path.Clean(filepath.ToSlash(p))
	if clean == "." {
		return fmt.Errorf("path names no file: %s", p)
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path traversal detected: %s", p)
	}

	return nil
}

// Within reports whether target lies strictly below dir. Both are cleaned
// first; dir itself is not within dir.
func Within(dir, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Overlaps reports whether a and b are the same directory or one contains
// the other.
func Overlaps(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	return a == b || Within(a, b) || Within(b, a)
}
