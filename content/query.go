package content

import (
	"fmt"
	"regexp"
	"strings"
)

var re_clause = regexp.MustCompile(`^\s*(\w+):"([^"]*)"\s*$`)

// SearchQuery returns a search string matching items tagged `tag` whose type is `item_type`.
func SearchQuery(tag string, item_type string) string {
	return fmt.Sprintf(`tags:"%s" AND type:"%s"`, tag, item_type)
}

// Query is the parsed form of a search string produced by SearchQuery.
type Query struct {
	Tags []string
	Type string
}

// ParseSearchQuery parses a search string made of `field:"value"` clauses joined by AND.
// Only the "tags" and "type" fields are supported.
func ParseSearchQuery(q string) (*Query, error) {

	parsed := &Query{
		Tags: make([]string, 0),
	}

	for _, clause := range strings.Split(q, " AND ") {

		m := re_clause.FindStringSubmatch(clause)

		if m == nil {
			return nil, fmt.Errorf("Invalid search clause '%s'", clause)
		}

		switch m[1] {
		case "tags":
			parsed.Tags = append(parsed.Tags, m[2])
		case "type":

			if parsed.Type != "" {
				return nil, fmt.Errorf("Search query has more than one type clause")
			}

			parsed.Type = m[2]
		default:
			return nil, fmt.Errorf("Unsupported search field '%s'", m[1])
		}
	}

	return parsed, nil
}

// Matches reports whether `item` satisfies every clause in the query.
func (q *Query) Matches(item Item) bool {

	if q.Type != "" && item.Type() != q.Type {
		return false
	}

	for _, t := range q.Tags {

		if !HasTag(item, t) {
			return false
		}
	}

	return true
}
