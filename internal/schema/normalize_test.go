package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(n int) *int { return &n }

func TestLessonOrderingAcrossSpellings(t *testing.T) {
	raw := []Record{
		{"id": "c", "order": 3.0},
		{"id": "a", "order_index": 2.0},
		{"id": "b", "orderIndex": 1.0},
		{"id": "z"},
		{"id": "d", "order": map[string]any{"index": 0.0}},
	}
	var ls []Lesson
	for _, r := range raw {
		ls = append(ls, Default.Lesson(r))
	}
	SortLessons(ls)

	got := make([]string, 0, len(ls))
	for _, l := range ls {
		got = append(got, l.ID)
	}
	assert.Equal(t, []string{"d", "b", "a", "c", "z"}, got)
	assert.Equal(t, OrderUnknown, ls[4].SortKey())
}

func TestLessonDefaultsAndPriority(t *testing.T) {
	l := Default.Lesson(Record{"lesson_id": 7.0, "id": "ignored", "name": "Chanterelles", "emoji": "🍄"})
	assert.Equal(t, "7", l.ID)
	assert.Equal(t, "Chanterelles", l.Title)
	assert.Equal(t, "🍄", l.Icon)

	empty := Default.Lesson(Record{})
	assert.Equal(t, DefaultLessonTitle, empty.Title)
	assert.Equal(t, "", empty.ID)
	assert.Nil(t, empty.Order)

	nested := Default.Lesson(Record{"lesson": map[string]any{"id": "L9"}})
	assert.Equal(t, "L9", nested.ID)
}

func TestQuestionNormalization(t *testing.T) {
	q := Default.Question(Record{
		"id":          12.0,
		"lessonId":    "L1",
		"kind":        "1img_4txt",
		"prompt":      "Which genus?",
		"imageUrl":    "https://img/amanita.jpg",
		"meta":        map[string]any{"xp": 50.0},
		"explain":     "White gills, ring, volva.",
		"answers": []any{
			map[string]any{"id": 2.0, "questionId": 12.0, "text": "Boletus", "order_index": 2.0},
			map[string]any{"id": 1.0, "question_id": 12.0, "answerText": "Amanita", "isCorrect": true, "order": 1.0},
		},
	})
	require.Equal(t, "12", q.ID)
	assert.Equal(t, "L1", q.LessonID)
	assert.Equal(t, "1img_4txt", q.Type)
	assert.Equal(t, "Which genus?", q.Text)
	assert.Equal(t, "https://img/amanita.jpg", q.ImageURL)
	assert.Equal(t, 50, q.XP)
	assert.Equal(t, "White gills, ring, volva.", q.Explanation)
	require.Len(t, q.Answers, 2)
	assert.Equal(t, "1", q.Answers[0].ID)
	assert.True(t, q.Answers[0].IsCorrect)
	assert.Equal(t, "12", q.Answers[1].QuestionID)

	c, ok := q.CorrectAnswer()
	require.True(t, ok)
	assert.Equal(t, "Amanita", c.Text)
}

func TestQuestionDefaults(t *testing.T) {
	q := Default.Question(Record{"id": "q1"})
	assert.Equal(t, DefaultQuestionXP, q.XP)
	assert.Equal(t, DefaultQuestionType, q.Type)
	assert.Equal(t, "", q.Text)
	assert.Nil(t, q.Answers)
}

func TestAnswerCorrectnessOnlyForTrue(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{int64(1), true},
		{int64(0), false},
		{"yes", false},
	}
	for _, c := range cases {
		a := Default.Answer(Record{"id": "a", "is_correct": c.in})
		assert.Equal(t, c.want, a.IsCorrect, "input %v", c.in)
	}
	assert.False(t, Default.Answer(Record{"id": "a"}).IsCorrect)
}

func TestCanonicalRoundTrip(t *testing.T) {
	lesson := Lesson{ID: "L1", Title: "Boletes", Description: "Pores not gills", Icon: "🍄", Category: "basics", Order: intp(4), XPAward: intp(120)}
	assert.Empty(t, cmp.Diff(lesson, Default.Lesson(LessonRecord(lesson))))

	q := Question{
		ID: "q1", LessonID: "L1", Type: "txt_only", Text: "Pick the bolete", XP: 25, Explanation: "Sponge underneath",
		Answers: []Answer{
			{ID: "a1", QuestionID: "q1", Text: "Porcini", IsCorrect: true, Order: intp(1)},
			{ID: "a2", QuestionID: "q1", Text: "Fly agaric", Order: intp(2)},
		},
	}
	rec := QuestionRecord(q)
	answers := make([]any, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, map[string]any(AnswerRecord(a)))
	}
	rec["answers"] = answers
	assert.Empty(t, cmp.Diff(q, Default.Question(rec)))

	// A second pass through JSON must not change anything either.
	buf, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded Record
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Empty(t, cmp.Diff(q, Default.Question(decoded)))

	p := Profile{UserID: "u1", DisplayName: "Myco", Bio: "spore printer", Country: "NZ", Region: "Otago", TotalXP: 300, Badges: []string{"first-lesson"}}
	assert.Empty(t, cmp.Diff(p, Default.Profile(ProfileRecord(p))))
}

func TestProfileBadgesFromArray(t *testing.T) {
	p := Default.Profile(Record{"user_id": "u", "badges": []any{"a", "b"}, "total_xp": "40"})
	assert.Equal(t, []string{"a", "b"}, p.Badges)
	assert.Equal(t, 40, p.TotalXP)
}
