// Package ustr implements the immutable byte-string type used for
// filesystem paths and FAT directory names throughout fat16 and vfs.
package ustr

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var shortnameCaser = cases.Upper(language.Und)

// Ustr is an immutable path or name, stored as raw bytes rather than a Go
// string so it composes cheaply with the byte buffers read straight out
// of directory entries.
type Ustr []uint8

// Isdot reports whether the string equals ".".
func (us Ustr) Isdot() bool {
	return len(us) == 1 && us[0] == '.'
}

// Isdotdot reports whether the string equals "..".
func (us Ustr) Isdotdot() bool {
	return len(us) == 2 && us[0] == '.' && us[1] == '.'
}

// Eq compares two Ustr values for byte equality.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

// MkUstr returns an empty Ustr.
func MkUstr() Ustr {
	return Ustr{}
}

// MkUstrDot returns a Ustr representing ".".
func MkUstrDot() Ustr {
	return Ustr(".")
}

// MkUstrRoot returns a Ustr for the root directory "/".
func MkUstrRoot() Ustr {
	return Ustr("/")
}

// DotDot is a reusable Ustr containing "..", used when synthesizing
// parent-directory entries during directory listing.
var DotDot = Ustr{'.', '.'}

// MkUstrSlice converts a NUL-terminated byte slice (as found in a
// directory entry) to a Ustr truncated at the first NUL.
func MkUstrSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == 0 {
			return buf[:i]
		}
	}
	return buf
}

// Extend appends '/' and p to the path and returns the result. No
// second '/' is added when the path already ends in one, so the root
// "/" extended by "usr" is "/usr".
func (us Ustr) Extend(p Ustr) Ustr {
	tmp := make(Ustr, len(us))
	copy(tmp, us)
	if len(tmp) > 0 && tmp[len(tmp)-1] == '/' {
		return append(tmp, p...)
	}
	r := append(tmp, '/')
	return append(r, p...)
}

// ExtendStr appends '/' and the string p to the path.
func (us Ustr) ExtendStr(p string) Ustr {
	return us.Extend(Ustr(p))
}

// IsAbsolute reports whether the path begins with '/'.
func (us Ustr) IsAbsolute() bool {
	if len(us) == 0 {
		return false
	}
	return us[0] == '/'
}

// IndexByte returns the index of b in the string, or -1 if absent.
func (us Ustr) IndexByte(b uint8) int {
	for i, v := range us {
		if v == b {
			return i
		}
	}
	return -1
}

// String converts the Ustr to a Go string.
func (us Ustr) String() string {
	return string(us)
}

// ToShortname11 folds us into FAT's 11-byte space-padded 8.3 shortname
// form: an 8-byte name and a 3-byte extension, both uppercased, split on
// the last '.'. A name or extension longer than its field is truncated.
func (us Ustr) ToShortname11() [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	name, ext := us.String(), ""
	if dot := lastIndexByte(us, '.'); dot >= 0 {
		name, ext = us.String()[:dot], us.String()[dot+1:]
	}
	name = shortnameCaser.String(name)
	ext = shortnameCaser.String(ext)
	copy(out[0:8], name)
	copy(out[8:11], ext)
	return out
}

func lastIndexByte(us Ustr, b uint8) int {
	for i := len(us) - 1; i >= 0; i-- {
		if us[i] == b {
			return i
		}
	}
	return -1
}

// Shortname11Eq reports whether two 8.3 shortname buffers are equal.
func Shortname11Eq(a, b [11]byte) bool {
	return a == b
}
