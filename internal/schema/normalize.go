package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Normalizer maps backend records onto canonical entities using one Mapping.
// It never fails: missing or unusable fields fall back to defaults.
type Normalizer struct {
	m Mapping
}

func NewNormalizer(m Mapping) *Normalizer { return &Normalizer{m: m} }

// Default uses MappingV1.
var Default = NewNormalizer(MappingV1)

func (n *Normalizer) Lesson(r Record) Lesson {
	f := n.m.Lesson
	title, ok := resolveString(r, f["title"])
	if !ok {
		title = DefaultLessonTitle
	}
	id, _ := resolveString(r, f["lesson_id"])
	desc, _ := resolveString(r, f["description"])
	icon, _ := resolveString(r, f["icon"])
	cat, _ := resolveString(r, f["category"])
	return Lesson{
		ID:          id,
		Title:       title,
		Description: desc,
		Icon:        icon,
		Category:    cat,
		Order:       resolveIntPtr(r, f["order_index"]),
		Level:       resolveIntPtr(r, f["level"]),
		XPAward:     resolveIntPtr(r, f["xp_award"]),
	}
}

func (n *Normalizer) Question(r Record) Question {
	f := n.m.Question
	id, _ := resolveString(r, f["id"])
	lessonID, _ := resolveString(r, f["lesson_id"])
	typ, ok := resolveString(r, f["question_type"])
	if !ok {
		typ = DefaultQuestionType
	}
	text, _ := resolveString(r, f["question_text"])
	img, _ := resolveString(r, f["image_url"])
	expl, _ := resolveString(r, f["explanation"])
	xp, ok := resolveInt(r, f["xp"])
	if !ok {
		xp = DefaultQuestionXP
	}
	q := Question{
		ID:          id,
		LessonID:    lessonID,
		Type:        typ,
		Text:        text,
		ImageURL:    img,
		XP:          xp,
		Explanation: expl,
	}
	if raw, ok := r["answers"].([]any); ok {
		q.Answers = make([]Answer, 0, len(raw))
		for _, item := range raw {
			if rec := asRecord(item); rec != nil {
				q.Answers = append(q.Answers, n.Answer(rec))
			}
		}
		SortAnswers(q.Answers)
	}
	return q
}

func (n *Normalizer) Answer(r Record) Answer {
	f := n.m.Answer
	id, _ := resolveString(r, f["id"])
	qid, _ := resolveString(r, f["question_id"])
	text, _ := resolveString(r, f["answer_text"])
	img, _ := resolveString(r, f["image_url"])
	return Answer{
		ID:         id,
		QuestionID: qid,
		Text:       text,
		ImageURL:   img,
		IsCorrect:  resolveBool(r, f["is_correct"]),
		Order:      resolveIntPtr(r, f["order_index"]),
	}
}

func (n *Normalizer) Profile(r Record) Profile {
	f := n.m.Profile
	p := Profile{}
	p.UserID, _ = resolveString(r, f["user_id"])
	p.DisplayName, _ = resolveString(r, f["display_name"])
	p.Bio, _ = resolveString(r, f["bio"])
	p.Country, _ = resolveString(r, f["country"])
	p.Region, _ = resolveString(r, f["region"])
	p.TotalXP, _ = resolveInt(r, f["total_xp"])
	p.Badges = resolveStrings(r, f["badges"])
	return p
}

func (n *Normalizer) Progress(r Record) Progress {
	uid, _ := resolveString(r, []string{"user_id", "userId"})
	lid, _ := resolveString(r, []string{"lesson_id", "lessonId"})
	return Progress{UserID: uid, LessonID: lid, Completed: resolveBool(r, []string{"completed"})}
}

// SortLessons orders lessons by resolved ordering key; unresolvable keys go last.
// The sort is stable so equal keys keep backend order.
func SortLessons(ls []Lesson) {
	sort.SliceStable(ls, func(i, j int) bool { return ls[i].SortKey() < ls[j].SortKey() })
}

func SortAnswers(as []Answer) {
	key := func(a Answer) int {
		if a.Order == nil {
			return OrderUnknown
		}
		return *a.Order
	}
	sort.SliceStable(as, func(i, j int) bool { return key(as[i]) < key(as[j]) })
}

// ---- canonical rendering ----

func LessonRecord(l Lesson) Record {
	r := Record{"lesson_id": l.ID, "title": l.Title}
	putString(r, "description", l.Description)
	putString(r, "icon", l.Icon)
	putString(r, "category", l.Category)
	putIntPtr(r, "order_index", l.Order)
	putIntPtr(r, "level", l.Level)
	putIntPtr(r, "xp_award", l.XPAward)
	return r
}

// QuestionRecord renders q without its answers; use AnswerRecord for those.
func QuestionRecord(q Question) Record {
	r := Record{"id": q.ID, "question_type": q.Type, "question_text": q.Text, "xp": q.XP}
	putString(r, "lesson_id", q.LessonID)
	putString(r, "image_url", q.ImageURL)
	putString(r, "explanation", q.Explanation)
	return r
}

func AnswerRecord(a Answer) Record {
	r := Record{"id": a.ID, "question_id": a.QuestionID, "is_correct": a.IsCorrect}
	putString(r, "answer_text", a.Text)
	putString(r, "image_url", a.ImageURL)
	putIntPtr(r, "order_index", a.Order)
	return r
}

func ProfileRecord(p Profile) Record {
	badges := p.Badges
	if badges == nil {
		badges = []string{}
	}
	b, _ := json.Marshal(badges)
	return Record{
		"user_id":      p.UserID,
		"display_name": p.DisplayName,
		"bio":          p.Bio,
		"country":      p.Country,
		"region":       p.Region,
		"total_xp":     p.TotalXP,
		"badges":       string(b),
	}
}

func putString(r Record, k, v string) {
	if v != "" {
		r[k] = v
	}
}

func putIntPtr(r Record, k string, v *int) {
	if v != nil {
		r[k] = *v
	}
}

// ---- resolution ----

func lookup(r Record, path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, part := range strings.Split(path, ".") {
		m := asRecord(cur)
		if m == nil {
			return nil, false
		}
		v, ok := m[part]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asRecord(v any) Record {
	switch t := v.(type) {
	case Record:
		return t
	case map[string]any:
		return Record(t)
	}
	return nil
}

func resolveString(r Record, paths []string) (string, bool) {
	for _, p := range paths {
		v, ok := lookup(r, p)
		if !ok {
			continue
		}
		if s, ok := toString(v); ok {
			return s, true
		}
	}
	return "", false
}

func resolveInt(r Record, paths []string) (int, bool) {
	for _, p := range paths {
		v, ok := lookup(r, p)
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok {
			return n, true
		}
	}
	return 0, false
}

func resolveIntPtr(r Record, paths []string) *int {
	n, ok := resolveInt(r, paths)
	if !ok {
		return nil
	}
	return &n
}

func resolveBool(r Record, paths []string) bool {
	for _, p := range paths {
		v, ok := lookup(r, p)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			s := strings.ToLower(strings.TrimSpace(t))
			return s == "true" || s == "t" || s == "1"
		case []byte:
			s := strings.ToLower(strings.TrimSpace(string(t)))
			return s == "true" || s == "t" || s == "1"
		default:
			n, ok := toInt(v)
			return ok && n == 1
		}
	}
	return false
}

func resolveStrings(r Record, paths []string) []string {
	for _, p := range paths {
		v, ok := lookup(r, p)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, x := range t {
				if s, ok := toString(x); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return append([]string(nil), t...)
		case string, []byte:
			s, _ := toString(t)
			var arr []string
			if json.Unmarshal([]byte(s), &arr) == nil {
				return arr
			}
		}
	}
	return []string{}
}

// toString coerces scalars to string. Objects and arrays are not strings.
func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return toString(float64(t))
	case int, int32, int64, uint, uint32, uint64:
		return fmt.Sprint(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case float32:
		return toInt(float64(t))
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil {
			return toInt(f)
		}
	case string:
		return parseIntString(t)
	case []byte:
		return parseIntString(string(t))
	}
	return 0, false
}

func parseIntString(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return toInt(f)
	}
	return 0, false
}
