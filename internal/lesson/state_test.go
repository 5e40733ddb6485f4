package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mind-engage/fungiquest/internal/schema"
)

func TestFailThreshold(t *testing.T) {
	cases := map[int]int{0: 3, 1: 3, 5: 3, 9: 3, 10: 3, 11: 4, 13: 4, 14: 5, 20: 6, 21: 7, 100: 30}
	for total, want := range cases {
		assert.Equal(t, want, FailThreshold(total), "total=%d", total)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(NotStarted{}))
	assert.False(t, Terminal(InProgress{}))
	assert.True(t, Terminal(Passed{}))
	assert.True(t, Terminal(Failed{}))
	assert.Equal(t, "question 2 of 5, 1 wrong, 30 XP", Describe(InProgress{Index: 1, Total: 5, Wrong: 1, XP: 30}))
}

func TestBuildPath(t *testing.T) {
	ls := []schema.Lesson{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	path := BuildPath(ls, map[string]bool{"a": true, "c": true})

	got := make([]Marker, 0, len(path))
	for _, s := range path {
		got = append(got, s.Marker)
	}
	assert.Equal(t, []Marker{MarkerCompleted, MarkerCurrent, MarkerCompleted, MarkerLocked}, got)
	assert.Equal(t, 1, CurrentIndex(path))
	assert.False(t, path[3].Playable())
	assert.True(t, path[2].Playable())

	all := BuildPath(ls, map[string]bool{"a": true, "b": true, "c": true, "d": true})
	assert.Equal(t, 3, CurrentIndex(all))
	assert.Equal(t, -1, CurrentIndex(nil))
}

func TestChooseLayout(t *testing.T) {
	textAnswers := []schema.Answer{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}}
	imgAnswers := []schema.Answer{{ID: "1", ImageURL: "https://x/1.jpg"}, {ID: "2", ImageURL: "https://x/2.jpg"}}

	cases := []struct {
		name string
		q    schema.Question
		want Layout
	}{
		{"explicit text type", schema.Question{Type: "4_txt_only", ImageURL: "https://x/q.jpg", Answers: imgAnswers}, LayoutTextOnly},
		{"no images at all", schema.Question{Type: "1img_4txt", Answers: textAnswers}, LayoutTextOnly},
		{"placeholder image", schema.Question{Type: "generic", ImageURL: " NULL ", Answers: textAnswers}, LayoutTextOnly},
		{"question image", schema.Question{Type: "generic", ImageURL: "https://x/q.jpg", Answers: textAnswers}, LayoutImageQuestion},
		{"img+txt type with image answers", schema.Question{Type: "1img_3txt", Answers: imgAnswers}, LayoutImageQuestion},
		{"image answers only", schema.Question{Type: "2_img_only", Answers: imgAnswers}, LayoutImageGrid},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ChooseLayout(tc.q), tc.name)
	}
	assert.Equal(t, 2, LayoutImageQuestion.Columns(4))
	assert.Equal(t, 1, LayoutImageQuestion.Columns(3))
	assert.Equal(t, 2, LayoutImageGrid.Columns(1))
}

func TestValidImage(t *testing.T) {
	for _, bad := range []string{"", "  ", "null", "undefined", "None", "n/a", "NA", "nil", "0", "-"} {
		assert.False(t, ValidImage(bad), bad)
	}
	assert.True(t, ValidImage("/assets/amanita.jpg"))
}
