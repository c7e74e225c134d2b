package validator

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Path locates a value inside a record: a list of object keys and array
// indexes from the root.
type Path []PathElement

// PathElement is one step of a Path. Exactly one of Key and Index is meaningful.
type PathElement struct {
	Key     string
	Index   int
	IsIndex bool
}

// Child returns the path of key inside the object at p.
func (p Path) Child(key string) Path {
	return append(p[:len(p):len(p)], PathElement{Key: key})
}

// Index returns the path of element i inside the array at p.
func (p Path) Index(i int) Path {
	return append(p[:len(p):len(p)], PathElement{Index: i, IsIndex: true})
}

// String renders p as finding_info_list[0].title. The root renders as "".
func (p Path) String() string {
	var sb strings.Builder
	for i, el := range p {
		if el.IsIndex {
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(el.Index))
			sb.WriteByte(']')
			continue
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(el.Key)
	}
	return sb.String()
}

// ParsePath parses the String form of a path.
func ParsePath(s string) Path {
	var p Path
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			continue
		}
		key, rest, _ := strings.Cut(part, "[")
		if key != "" {
			p = p.Child(key)
		}
		for rest != "" {
			var idx string
			idx, rest, _ = strings.Cut(rest, "]")
			if n, err := strconv.Atoi(idx); err == nil {
				p = p.Index(n)
			}
			rest = strings.TrimPrefix(rest, "[")
		}
	}
	return p
}

// MarshalJSON encodes p in its String form.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes the String form of a path.
func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParsePath(s)
	return nil
}
