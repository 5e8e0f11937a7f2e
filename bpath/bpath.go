// Package bpath splits and joins '/'-delimited paths for fat16's
// directory-walk resolution and vfs's path cache key construction.
package bpath

import "github.com/nekogakure/litecore/ustr"

// Split breaks an absolute or relative path into its non-empty
// components: "/usr/bin/ls" -> ["usr", "bin", "ls"]; "" or "/" -> nil.
func Split(p ustr.Ustr) []ustr.Ustr {
	var parts []ustr.Ustr
	start := -1
	for i := 0; i <= len(p); i++ {
		if i < len(p) && p[i] != '/' {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			parts = append(parts, p[start:i])
			start = -1
		}
	}
	return parts
}

// Join concatenates path components with '/' separators, always
// producing an absolute path.
func Join(parts []ustr.Ustr) ustr.Ustr {
	out := ustr.MkUstrRoot()
	for i, p := range parts {
		if i == 0 {
			out = append(ustr.Ustr{}, '/')
			out = append(out, p...)
			continue
		}
		out = out.Extend(p)
	}
	if len(parts) == 0 {
		return ustr.MkUstrRoot()
	}
	return out
}

// Dir returns all but the last component of p, as an absolute path.
func Dir(p ustr.Ustr) ustr.Ustr {
	parts := Split(p)
	if len(parts) == 0 {
		return ustr.MkUstrRoot()
	}
	return Join(parts[:len(parts)-1])
}

// Base returns the last component of p, or the root string if p names
// the root directory itself.
func Base(p ustr.Ustr) ustr.Ustr {
	parts := Split(p)
	if len(parts) == 0 {
		return ustr.MkUstrRoot()
	}
	return parts[len(parts)-1]
}

// Canonicalize resolves "." and ".." components of an absolute path,
// as used by vfs's WorkingDir when joining a relative path onto cwd.
// ".." at the root is a no-op rather than an error.
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	parts := Split(p)
	out := make([]ustr.Ustr, 0, len(parts))
	for _, part := range parts {
		switch {
		case part.Isdot():
			continue
		case part.Isdotdot():
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return Join(out)
}
