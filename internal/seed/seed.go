// Package seed loads lesson content from YAML (lessons with nested questions
// and answers) and upserts it through a backend.Store.
package seed

import (
	"context"
	"embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/schema"
)

//go:embed data/lessons.yaml
var builtin embed.FS

// DefaultQuestionXP matches the normalizer's default.
const DefaultQuestionXP = 10

type File struct {
	Lessons []LessonDoc `yaml:"lessons"`
}

type LessonDoc struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Icon        string        `yaml:"icon"`
	Category    string        `yaml:"category"`
	Order       *int          `yaml:"order"`
	Level       *int          `yaml:"level"`
	XPAward     *int          `yaml:"xp_award"`
	Questions   []QuestionDoc `yaml:"questions"`
}

type QuestionDoc struct {
	ID          string      `yaml:"id"`
	Type        string      `yaml:"type"`
	Text        string      `yaml:"text"`
	Image       string      `yaml:"image"`
	XP          *int        `yaml:"xp"`
	Explanation string      `yaml:"explanation"`
	Answers     []AnswerDoc `yaml:"answers"`
}

type AnswerDoc struct {
	ID      string `yaml:"id"`
	Text    string `yaml:"text"`
	Image   string `yaml:"image"`
	Correct bool   `yaml:"correct"`
}

// Batch is a seed file rendered as canonical table rows.
type Batch struct {
	Lessons   []schema.Record
	Questions []schema.Record
	Answers   []schema.Record
}

func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("parse seed: %w", err)
	}
	return f, f.Validate()
}

// Builtin is the starter content shipped with the binary.
func Builtin() (File, error) {
	fh, err := builtin.Open("data/lessons.yaml")
	if err != nil {
		return File{}, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Validate requires ids on lessons, at least one answer per question and
// exactly one correct answer, and unique ids across the file.
func (f File) Validate() error {
	seen := map[string]bool{}
	dup := func(kind, id string) error {
		k := kind + ":" + id
		if seen[k] {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[k] = true
		return nil
	}
	for li, l := range f.Lessons {
		if strings.TrimSpace(l.ID) == "" {
			return fmt.Errorf("lesson #%d: id is required", li+1)
		}
		if err := dup("lesson", l.ID); err != nil {
			return err
		}
		for qi, q := range l.Questions {
			qid := questionID(l, qi)
			if err := dup("question", qid); err != nil {
				return err
			}
			if len(q.Answers) == 0 {
				return fmt.Errorf("question %s: no answers", qid)
			}
			correct := 0
			for ai, a := range q.Answers {
				if err := dup("answer", answerID(qid, q, ai)); err != nil {
					return err
				}
				if a.Correct {
					correct++
				}
			}
			if correct != 1 {
				return fmt.Errorf("question %s: want exactly one correct answer, have %d", qid, correct)
			}
		}
	}
	return nil
}

func questionID(l LessonDoc, i int) string {
	if id := l.Questions[i].ID; id != "" {
		return id
	}
	return fmt.Sprintf("%s-q%02d", l.ID, i+1)
}

func answerID(qid string, q QuestionDoc, i int) string {
	if id := q.Answers[i].ID; id != "" {
		return id
	}
	return fmt.Sprintf("%s-a%d", qid, i+1)
}

// Records renders f as canonical rows. Lessons without an explicit order
// take their position in the file.
func (f File) Records() Batch {
	var b Batch
	for li, l := range f.Lessons {
		order := l.Order
		if order == nil {
			n := li + 1
			order = &n
		}
		b.Lessons = append(b.Lessons, schema.LessonRecord(schema.Lesson{
			ID: l.ID, Title: l.Title, Description: l.Description, Icon: l.Icon,
			Category: l.Category, Order: order, Level: l.Level, XPAward: l.XPAward,
		}))
		for qi, q := range l.Questions {
			qid := questionID(l, qi)
			xp := DefaultQuestionXP
			if q.XP != nil {
				xp = *q.XP
			}
			typ := q.Type
			if typ == "" {
				typ = inferType(q)
			}
			b.Questions = append(b.Questions, schema.QuestionRecord(schema.Question{
				ID: qid, LessonID: l.ID, Type: typ, Text: q.Text,
				ImageURL: q.Image, XP: xp, Explanation: q.Explanation,
			}))
			for ai, a := range q.Answers {
				n := ai + 1
				b.Answers = append(b.Answers, schema.AnswerRecord(schema.Answer{
					ID: answerID(qid, q, ai), QuestionID: qid, Text: a.Text,
					ImageURL: a.Image, IsCorrect: a.Correct, Order: &n,
				}))
			}
		}
	}
	return b
}

// inferType names a question after the images it carries, in the
// "1img_4txt" style the content tables use.
func inferType(q QuestionDoc) string {
	imgAnswers := 0
	for _, a := range q.Answers {
		if a.Image != "" {
			imgAnswers++
		}
	}
	switch {
	case imgAnswers > 0:
		return fmt.Sprintf("%d_img_only", imgAnswers)
	case q.Image != "":
		return fmt.Sprintf("1img_%dtxt", len(q.Answers))
	default:
		return fmt.Sprintf("%d_txt_only", len(q.Answers))
	}
}

type Result struct {
	Lessons, Questions, Answers int
}

// Apply upserts parents before children: lessons, questions, answers.
func Apply(ctx context.Context, store backend.Store, b Batch) (Result, error) {
	steps := []struct {
		table string
		rows  []schema.Record
	}{
		{backend.TableLessons, b.Lessons},
		{backend.TableQuestions, b.Questions},
		{backend.TableAnswers, b.Answers},
	}
	for _, s := range steps {
		if err := store.Upsert(ctx, s.table, s.rows); err != nil {
			return Result{}, fmt.Errorf("seed %s: %w", s.table, err)
		}
	}
	return Result{Lessons: len(b.Lessons), Questions: len(b.Questions), Answers: len(b.Answers)}, nil
}
