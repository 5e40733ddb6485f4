package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/fungiquest/internal/apierr"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/schema"
)

var errNoQuestions = errors.New("No questions found")

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// GET /lessons
func ListLessonsHandler(c *content.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ls, err := c.ListLessons(r.Context())
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if ls == nil {
			ls = []schema.Lesson{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"lessons": ls})
	}
}

func questionFilter(r *http.Request) content.QuestionFilter {
	q := r.URL.Query()
	return content.QuestionFilter{
		LessonID: strings.TrimSpace(q.Get("lessonId")),
		Type:     strings.TrimSpace(q.Get("type")),
	}
}

// GET /questions?lessonId=&type=
func ListQuestionsHandler(c *content.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := c.ListQuestions(r.Context(), questionFilter(r))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		if qs == nil {
			qs = []schema.Question{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": qs})
	}
}

// GET /questions/random?lessonId=&type=
func RandomQuestionHandler(c *content.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := c.RandomQuestion(r.Context(), questionFilter(r))
		if apierr.IsNotFound(err) {
			apierr.Write(w, apierr.New(http.StatusNotFound, "not_found", errNoQuestions))
			return
		}
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q})
	}
}

// GET /questions/{id}
func GetQuestionHandler(c *content.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := c.GetQuestion(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			apierr.Write(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q})
	}
}

type submitRequest struct {
	AnswerID string `json:"answerId"`
	UserID   string `json:"userId"`
}

// POST /questions/{id}/submit {answerId,userId}
func SubmitAnswerHandler(c *content.Client, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in submitRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			apierr.Write(w, apierr.Invalid("bad json"))
			return
		}
		if strings.TrimSpace(in.AnswerID) == "" {
			apierr.Write(w, apierr.Invalid("answerId required"))
			return
		}
		qid := chi.URLParam(r, "id")
		res, err := c.SubmitAnswer(r.Context(), qid, in.AnswerID)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		log.Debug("answer graded", "question", qid, "user", in.UserID, "correct", res.IsCorrect)
		writeJSON(w, http.StatusOK, res)
	}
}
