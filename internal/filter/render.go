package filter

import (
	"fmt"
	"strings"
)

// Render turns a predicate into one SQL fragment with $n placeholders,
// numbering from 1.
func Render(n Node) (string, []any) {
	return RenderAt(n, 1)
}

// RenderAt renders with placeholder numbering starting at start, so callers
// can embed the fragment into a larger parameterized statement.
func RenderAt(n Node, start int) (string, []any) {
	r := &renderer{next: start}
	sql := r.render(n)
	return sql, r.args
}

type renderer struct {
	args []any
	next int
}

func (r *renderer) placeholder(arg any) string {
	r.args = append(r.args, arg)
	p := fmt.Sprintf("$%d", r.next)
	r.next++
	return p
}

func placeholderList[T any](r *renderer, items []T) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = r.placeholder(it)
	}
	return strings.Join(parts, ", ")
}

func (r *renderer) render(n Node) string {
	switch t := n.(type) {
	case Constant:
		if t {
			return "TRUE"
		}
		return "FALSE"

	case andNode:
		parts := make([]string, len(t.nodes))
		for i, c := range t.nodes {
			parts[i] = r.render(c)
		}
		return "(" + strings.Join(parts, " AND ") + ")"

	case orNode:
		parts := make([]string, len(t.nodes))
		for i, c := range t.nodes {
			parts[i] = r.render(c)
		}
		return "(" + strings.Join(parts, " OR ") + ")"

	case notNode:
		return "NOT " + r.render(t.node)

	case idList:
		op := "IN"
		if !t.ids.Inclusive() {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", t.column, op, placeholderList(r, t.ids.Items()))

	case feedMatch:
		op := "IN"
		if !t.feeds.Inclusive() {
			op = "NOT IN"
		}
		dest := ""
		if t.destinationOnly {
			dest = " AND pf.is_destination"
		}
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM post_feeds pf WHERE pf.post_id = %s AND pf.feed_id %s (%s)%s)",
			t.postIDColumn, op, placeholderList(r, t.feeds.Items()), dest,
		)

	case tokenMatch:
		pattern := "% " + t.text + " %"
		if t.kind == MatchPrefix {
			pattern = "% " + t.text + "%"
		}
		op := "LIKE"
		if t.negate {
			op = "NOT LIKE"
		}
		return fmt.Sprintf("%s %s %s", t.column, op, r.placeholder(pattern))

	case boolColumn:
		if t.want {
			return t.column
		}
		return "NOT " + t.column

	case intColumn:
		return fmt.Sprintf("%s = %s", t.column, r.placeholder(t.value))

	case commentsWhere:
		return fmt.Sprintf(
			"EXISTS (SELECT 1 FROM comments WHERE comments.post_id = posts.uid AND %s)",
			r.render(t.inner),
		)

	case authorPresent:
		return fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM users gu WHERE gu.uid = %s AND gu.gone_status IS NOT NULL)",
			t.authorColumn,
		)
	}
	panic(fmt.Sprintf("filter: unknown node %T", n))
}
