package core

import "strings"

// Version is a parsed epoch:upstream-release version string.
type Version struct {
	Epoch    string
	Upstream string
	Release  string
}

// ParseVersion splits a version string into its epoch, upstream and
// release parts. It never fails: a missing or non-numeric epoch is treated
// as 0 and a missing release as empty.
func ParseVersion(value string) Version {
	value = strings.TrimSpace(value)
	var v Version
	if idx := strings.IndexByte(value, ':'); idx > 0 && isDigits(value[:idx]) {
		v.Epoch = value[:idx]
		value = value[idx+1:]
	}
	if idx := strings.LastIndexByte(value, '-'); idx >= 0 {
		v.Release = value[idx+1:]
		value = value[:idx]
	}
	v.Upstream = value
	return v
}

func (v Version) String() string {
	var b strings.Builder
	if v.Epoch != "" {
		b.WriteString(v.Epoch)
		b.WriteByte(':')
	}
	b.WriteString(v.Upstream)
	if v.Release != "" {
		b.WriteByte('-')
		b.WriteString(v.Release)
	}
	return b.String()
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(other Version) int {
	if c := compareDigits(v.Epoch, other.Epoch); c != 0 {
		return c
	}
	if c := compareSegments(v.Upstream, other.Upstream); c != 0 {
		return c
	}
	return compareSegments(v.Release, other.Release)
}

// CompareVersions returns -1, 0 or 1 comparing a and b.
func CompareVersions(a string, b string) int {
	return ParseVersion(a).Compare(ParseVersion(b))
}

// compareSegments implements the Debian verrevcmp order, not pacman's
// vercmp. It walks both strings as alternating runs of non-digits and
// digits. Non-digit runs compare character by character where '~' sorts
// before everything including the end of the string and letters sort
// before other symbols; digit runs compare numerically. A trailing letter
// run therefore makes a version newer: "1.0rc1" sorts after "1.0" and
// "1.a" after "1.5". Pre-releases have to be spelled with '~'.
func compareSegments(a string, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac, bc := charOrder(a, i), charOrder(b, j)
			if ac != bc {
				return sign(ac - bc)
			}
			i++
			j++
		}
		si := i
		for i < len(a) && isDigit(a[i]) {
			i++
		}
		sj := j
		for j < len(b) && isDigit(b[j]) {
			j++
		}
		if c := compareDigits(a[si:i], b[sj:j]); c != 0 {
			return c
		}
	}
	return 0
}

// compareDigits compares two runs of ASCII digits numerically without
// converting them, so arbitrarily long runs cannot overflow.
func compareDigits(a string, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return sign(len(a) - len(b))
	}
	return strings.Compare(a, b)
}

func charOrder(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	c := s[i]
	switch {
	case isDigit(c):
		return 0
	case isLetter(c):
		return int(c)
	case c == '~':
		return -1
	default:
		return int(c) + 256
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
