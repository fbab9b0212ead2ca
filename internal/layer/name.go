package layer

import (
	"regexp"
	"strconv"
)

var counterSuffix = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// BaseName strips a trailing " (n)" counter, so "Wall (2)" yields "Wall".
func BaseName(name string) string {
	if m := counterSuffix.FindStringSubmatch(name); m != nil && m[1] != "" {
		return m[1]
	}
	return name
}

// DisambiguateName returns "Base (n)" where Base is name without its counter
// suffix and n is one more than the highest counter any layer carries on
// Base. Counters only grow, so a deleted "Wall (1)" is never handed out again
// while "Wall (2)" exists. Only user-initiated creation renames; imports keep
// their names.
func (c *Collection) DisambiguateName(name string) string {
	base := BaseName(name)
	highest := 0
	for _, l := range c.layers {
		m := counterSuffix.FindStringSubmatch(l.Name)
		if m == nil || m[1] != base {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil && n > highest {
			highest = n
		}
	}
	return base + " (" + strconv.Itoa(highest+1) + ")"
}
