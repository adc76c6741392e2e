package namespace

import (
	"strings"
)

// PrefixList answers whether a path falls under any of an ordered set
// of path prefixes. Used for the pin list (never evict) and the white
// list (allowed to cache).
type PrefixList struct {
	list []string
}

// ParsePrefixList splits a comma or semicolon separated prefix string.
func ParsePrefixList(raw string) *PrefixList {
	entries := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	return NewPrefixList(entries)
}

func NewPrefixList(entries []string) *PrefixList {
	l := &PrefixList{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			l.list = append(l.list, e)
		}
	}
	return l
}

func (l *PrefixList) InList(path string) bool {
	for _, prefix := range l.list {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (l *PrefixList) List() []string {
	ret := make([]string, len(l.list))
	copy(ret, l.list)
	return ret
}
