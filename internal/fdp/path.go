package fdp

import "strings"

// RootPath is the root directory of every pod.
const RootPath = "/"

// ValidatePath checks a full path naming a file or directory. Rules are
// checked in order and nothing is ever trimmed: a path that would change
// under whitespace trimming is rejected.
func ValidatePath(p string) error {
	if p == "" {
		return validationError("path is empty")
	}
	if strings.TrimSpace(p) != p {
		return validationError("path %q contains characters that can be truncated", p)
	}
	if p[0] != '/' {
		return validationError("path %q must start with %q", p, "/")
	}

	segments := strings.Split(p, "/")[1:]
	if len(segments) == 0 {
		return validationError("path %q must contain at least one file or directory name", p)
	}
	if segments[len(segments)-1] == "" {
		return validationError("file or directory name is empty in %q", p)
	}
	for _, s := range segments {
		if s == "" {
			return validationError("path %q contains an empty segment", p)
		}
		if strings.TrimSpace(s) != s {
			return validationError("path %q contains characters that can be truncated", p)
		}
	}
	return nil
}

// ValidateDirectoryPath is ValidatePath that also accepts the root.
func ValidateDirectoryPath(p string) error {
	if p == RootPath {
		return nil
	}
	return ValidatePath(p)
}

// DecomposePath validates p and splits it into its parent directory and
// name. A top-level name has the parent "/".
func DecomposePath(p string) (dir, name string, err error) {
	if err := ValidatePath(p); err != nil {
		return "", "", err
	}
	i := strings.LastIndexByte(p, '/')
	dir, name = p[:i], p[i+1:]
	if dir == "" {
		dir = RootPath
	}
	return dir, name, nil
}

// JoinPath is the inverse of DecomposePath.
func JoinPath(dir, name string) string {
	if dir == RootPath {
		return RootPath + name
	}
	return dir + "/" + name
}
