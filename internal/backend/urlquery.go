package backend

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// EncodeQuery renders q in the table API's URL form:
// col=eq.v, col=in.(a,b), order=col.asc|desc, limit=n.
func EncodeQuery(q Query) url.Values {
	v := url.Values{}
	v.Set("select", "*")
	for c, val := range q.Eq {
		v.Set(c, "eq."+formatValue(val))
	}
	for c, vals := range q.In {
		parts := make([]string, 0, len(vals))
		for _, x := range vals {
			parts = append(parts, quoteListItem(formatValue(x)))
		}
		v.Set(c, "in.("+strings.Join(parts, ",")+")")
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Desc {
			dir = "desc"
		}
		v.Set("order", q.OrderBy+"."+dir)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// DecodeQuery parses the URL form back into a Query for table.
func DecodeQuery(table string, v url.Values) (Query, error) {
	q := Query{Table: table}
	for key, vals := range v {
		if len(vals) == 0 {
			continue
		}
		raw := vals[0]
		switch key {
		case "select", "on_conflict":
			continue
		case "order":
			col, dir, _ := strings.Cut(raw, ".")
			q.OrderBy = col
			switch dir {
			case "", "asc":
			case "desc":
				q.Desc = true
			default:
				return Query{}, fmt.Errorf("bad order direction %q", dir)
			}
		case "limit":
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return Query{}, fmt.Errorf("bad limit %q", raw)
			}
			q.Limit = n
		default:
			op, operand, ok := strings.Cut(raw, ".")
			if !ok {
				return Query{}, fmt.Errorf("bad filter %s=%s", key, raw)
			}
			switch op {
			case "eq":
				q.WhereEq(key, parseValue(operand))
			case "in":
				items, err := splitList(operand)
				if err != nil {
					return Query{}, fmt.Errorf("filter %s: %w", key, err)
				}
				vals := make([]any, 0, len(items))
				for _, it := range items {
					vals = append(vals, parseValue(it))
				}
				q.WhereIn(key, vals)
			default:
				return Query{}, fmt.Errorf("unsupported operator %q", op)
			}
		}
	}
	return q, q.Validate()
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// parseValue keeps everything a string except literal booleans, so text keys
// like "7" still compare equal to text columns.
func parseValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func quoteListItem(s string) string {
	if strings.ContainsAny(s, `,()"`) {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

func splitList(s string) ([]string, error) {
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("list must be parenthesised: %q", s)
	}
	s = s[1 : len(s)-1]
	if s == "" {
		return nil, nil
	}
	var (
		out    []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && quoted && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", s)
	}
	return append(out, cur.String()), nil
}
