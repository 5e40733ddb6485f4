package schema

import "math"

// Record is a loosely typed backend row as decoded from JSON or scanned from SQL.
type Record map[string]any

// OrderUnknown is the sort key of a lesson whose ordering field cannot be resolved.
const OrderUnknown = math.MaxInt

const (
	DefaultQuestionXP   = 10
	DefaultLessonTitle  = "Untitled Lesson"
	DefaultQuestionType = "generic"
)

type Lesson struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Category    string `json:"category,omitempty"`
	Order       *int   `json:"order,omitempty"`
	Level       *int   `json:"level,omitempty"`
	XPAward     *int   `json:"xp_award,omitempty"`
}

// SortKey is the resolved ordering key, OrderUnknown when absent.
func (l Lesson) SortKey() int {
	if l.Order == nil {
		return OrderUnknown
	}
	return *l.Order
}

type Question struct {
	ID          string   `json:"id"`
	LessonID    string   `json:"lesson_id,omitempty"`
	Type        string   `json:"type"`
	Text        string   `json:"question_text"`
	ImageURL    string   `json:"image_url,omitempty"`
	XP          int      `json:"xp"`
	Explanation string   `json:"explanation,omitempty"`
	Answers     []Answer `json:"answers,omitempty"`
}

// CorrectAnswer returns the first answer flagged correct. Nothing enforces
// that exactly one is flagged.
func (q Question) CorrectAnswer() (Answer, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a, true
		}
	}
	return Answer{}, false
}

func (q Question) Answer(id string) (Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == id {
			return a, true
		}
	}
	return Answer{}, false
}

type Answer struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"answer_text,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	IsCorrect  bool   `json:"is_correct"`
	Order      *int   `json:"order,omitempty"`
}

type Profile struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Country     string   `json:"country"`
	Region      string   `json:"region"`
	TotalXP     int      `json:"total_xp"`
	Badges      []string `json:"badges"`
}

type Progress struct {
	UserID    string `json:"user_id"`
	LessonID  string `json:"lesson_id"`
	Completed bool   `json:"completed"`
}
