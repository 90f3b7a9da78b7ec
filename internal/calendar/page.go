package calendar

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

const (
	yearAttrPrefix = "data-hour-"
	labelsAttrID   = "data-hour-labels"
)

// entityDecoder undoes the escaping the calendar widget applies on top of regular
// HTML entity encoding. No replacement produces another pattern, so applying it
// twice is the same as applying it once.
var entityDecoder = strings.NewReplacer(
	"&#34;", `"`,
	`\u0027`, "'",
	"&quot;", `"`,
)

// decodeEntities returns s with the widget escaping removed.
func decodeEntities(s string) string {
	return entityDecoder.Replace(s)
}

// findValues returns the value attribute of the elements whose id is in ids.
// Only the first element carrying a given id is considered.
func findValues(page []byte, ids ...string) (map[string]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	values := make(map[string]string, len(ids))
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}

		id, ok := attr(n, "id")
		if !ok || !want[id] {
			continue
		}
		if _, seen := values[id]; seen {
			continue
		}
		if v, ok := attr(n, "value"); ok {
			values[id] = v
		}
	}

	return values, nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
