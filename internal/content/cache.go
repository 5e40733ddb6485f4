package content

import (
	"sync"

	"github.com/mind-engage/fungiquest/internal/schema"
)

// Cache holds what a Client has already fetched: the lesson list, question
// lists per lesson and questions by id. It lives as long as its Client.
//
// Every invalidation bumps the generation. Writers pass the generation they
// read before fetching, and a result from an older generation is dropped.
type Cache struct {
	mu        sync.RWMutex
	gen       uint64
	lessons   []schema.Lesson
	haveLs    bool
	byLesson  map[string][]schema.Question
	questions map[string]schema.Question
}

func NewCache() *Cache {
	return &Cache{
		byLesson:  map[string][]schema.Question{},
		questions: map[string]schema.Question{},
	}
}

func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

func (c *Cache) Lessons() ([]schema.Lesson, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.haveLs {
		return nil, false
	}
	return append([]schema.Lesson(nil), c.lessons...), true
}

// SetLessons stores ls unless the cache was invalidated since gen.
func (c *Cache) SetLessons(gen uint64, ls []schema.Lesson) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.lessons = append([]schema.Lesson(nil), ls...)
	c.haveLs = true
	return true
}

func (c *Cache) LessonQuestions(lessonID string) ([]schema.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	qs, ok := c.byLesson[lessonID]
	if !ok {
		return nil, false
	}
	return append([]schema.Question(nil), qs...), true
}

func (c *Cache) SetLessonQuestions(gen uint64, lessonID string, qs []schema.Question) {
	c.mu.Lock()
	if gen == c.gen {
		c.byLesson[lessonID] = append([]schema.Question(nil), qs...)
	}
	c.mu.Unlock()
}

func (c *Cache) Question(id string) (schema.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.questions[id]
	return q, ok
}

func (c *Cache) PutQuestions(gen uint64, qs ...schema.Question) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	for _, q := range qs {
		c.questions[q.ID] = q
	}
	c.mu.Unlock()
}

// Invalidate drops everything.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.lessons, c.haveLs = nil, false
	c.byLesson = map[string][]schema.Question{}
	c.questions = map[string]schema.Question{}
	c.mu.Unlock()
}

// InvalidateLesson drops the question list of one lesson and the questions in it.
func (c *Cache) InvalidateLesson(lessonID string) {
	c.mu.Lock()
	c.gen++
	for _, q := range c.byLesson[lessonID] {
		delete(c.questions, q.ID)
	}
	delete(c.byLesson, lessonID)
	for id, q := range c.questions {
		if q.LessonID == lessonID {
			delete(c.questions, id)
		}
	}
	c.mu.Unlock()
}
