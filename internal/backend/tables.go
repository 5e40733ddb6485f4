// Package backend describes the structured table API the app reads and writes:
// equality and membership filters, one ordering column, optional limit, and
// upserts. sqltables serves it from a SQL database; rest speaks it over HTTP.
package backend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/mind-engage/fungiquest/internal/schema"
)

const (
	TableLessons   = "lessons"
	TableQuestions = "questions"
	TableAnswers   = "answers"
	TableProgress  = "progress"
	TableProfiles  = "profiles"
)

// Tables is the set of tables reachable through the table API.
var Tables = []string{TableLessons, TableQuestions, TableAnswers, TableProgress, TableProfiles}

// ConflictKeys is the natural key used by upserts on each table.
var ConflictKeys = map[string][]string{
	TableLessons:   {"lesson_id"},
	TableQuestions: {"id"},
	TableAnswers:   {"id"},
	TableProgress:  {"user_id", "lesson_id"},
	TableProfiles:  {"user_id"},
}

type Query struct {
	Table   string
	Eq      map[string]any
	In      map[string][]any
	OrderBy string
	Desc    bool
	Limit   int
}

func From(table string) *Query { return &Query{Table: table} }

func (q *Query) WhereEq(col string, v any) *Query {
	if q.Eq == nil {
		q.Eq = map[string]any{}
	}
	q.Eq[col] = v
	return q
}

func (q *Query) WhereIn(col string, vs []any) *Query {
	if q.In == nil {
		q.In = map[string][]any{}
	}
	q.In[col] = vs
	return q
}

func (q *Query) Order(col string, desc bool) *Query {
	q.OrderBy, q.Desc = col, desc
	return q
}

func (q *Query) Take(n int) *Query {
	q.Limit = n
	return q
}

// Store executes table queries.
type Store interface {
	Select(ctx context.Context, q Query) ([]schema.Record, error)
	Upsert(ctx context.Context, table string, rows []schema.Record) error
}

var ErrUnknownTable = errors.New("unknown table")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is safe to splice into SQL as a column name.
func ValidIdent(s string) bool { return identRe.MatchString(s) }

func KnownTable(t string) bool {
	_, ok := ConflictKeys[t]
	return ok
}

// Validate checks the table and every column name used by q.
func (q Query) Validate() error {
	if !KnownTable(q.Table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, q.Table)
	}
	for c := range q.Eq {
		if !ValidIdent(c) {
			return fmt.Errorf("bad column %q", c)
		}
	}
	for c := range q.In {
		if !ValidIdent(c) {
			return fmt.Errorf("bad column %q", c)
		}
	}
	if q.OrderBy != "" && !ValidIdent(q.OrderBy) {
		return fmt.Errorf("bad order column %q", q.OrderBy)
	}
	return nil
}

// SubmitResult is the outcome of grading one answer, as returned by
// POST /questions/{id}/submit.
type SubmitResult struct {
	IsCorrect       bool   `json:"isCorrect"`
	XPEarned        int    `json:"xpEarned"`
	CorrectAnswerID string `json:"correctAnswerId,omitempty"`
}

// Columns lists the writable and filterable columns of each table.
var Columns = map[string][]string{
	TableLessons:   {"lesson_id", "title", "description", "icon", "category", "order_index", "level", "xp_award"},
	TableQuestions: {"id", "lesson_id", "question_type", "question_text", "image_url", "xp", "explanation"},
	TableAnswers:   {"id", "question_id", "answer_text", "image_url", "is_correct", "order_index"},
	TableProgress:  {"user_id", "lesson_id", "completed", "updated_at"},
	TableProfiles:  {"user_id", "display_name", "bio", "country", "region", "total_xp", "badges"},
}

var ErrUnknownColumn = errors.New("unknown column")

// CheckColumns fails on the first column table does not have.
func CheckColumns(table string, cols ...string) error {
	known := Columns[table]
	for _, c := range cols {
		if !slices.Contains(known, c) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, c)
		}
	}
	return nil
}

// Columns returns every column q filters or orders on.
func (q Query) Columns() []string {
	var out []string
	for c := range q.Eq {
		out = append(out, c)
	}
	for c := range q.In {
		out = append(out, c)
	}
	if q.OrderBy != "" {
		out = append(out, q.OrderBy)
	}
	return out
}
