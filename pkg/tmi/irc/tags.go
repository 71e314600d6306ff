package irc

import (
	"strconv"
	"strings"
)

var unescapeTags = strings.NewReplacer("\\\\", "\\", "\\:", ";", "\\s", " ", "\\r", "\r", "\\n", "\n")

func parseTags(raw string) map[string]string {
	tags := make(map[string]string, strings.Count(raw, ";")+1)

	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ';' {
			tag := raw[start:i]
			if tag != "" {
				if eq := strings.IndexByte(tag, '='); eq != -1 {
					tags[tag[:eq]] = unescapeTags.Replace(tag[eq+1:])
				} else {
					tags[tag] = ""
				}
			}
			start = i + 1
		}
	}

	return tags
}

// ParseBadges splits a badges tag ("moderator/1,subscriber/12") into set → version.
func ParseBadges(v string) map[string]string {
	badges := make(map[string]string)
	if v == "" {
		return badges
	}

	for _, b := range strings.Split(v, ",") {
		if b == "" {
			continue
		}
		name, version, _ := strings.Cut(b, "/")
		badges[name] = version
	}
	return badges
}

// ParseList splits a comma separated tag value, dropping empty items.
func ParseList(v string) []string {
	if v == "" {
		return nil
	}

	out := make([]string, 0, strings.Count(v, ",")+1)
	for _, item := range strings.Split(v, ",") {
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// TagBool reports whether a tag is set to "1".
func (m *Message) TagBool(key string) bool {
	return m.Tags[key] == "1"
}

// TagInt returns the integer value of a tag and whether it was present and numeric.
func (m *Message) TagInt(key string) (int, bool) {
	v, ok := m.Tags[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
