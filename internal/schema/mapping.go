package schema

// Mapping lists, for every canonical field, the backend paths that may carry
// it. Paths are tried in order and the first usable value wins. A dotted path
// ("lesson.id") descends into nested objects. The canonical column name is
// always a candidate so that canonical records normalize to themselves.
type Mapping struct {
	Version  int
	Lesson   map[string][]string
	Question map[string][]string
	Answer   map[string][]string
	Profile  map[string][]string
}

// MappingV1 covers every field spelling seen in exported lesson data.
var MappingV1 = Mapping{
	Version: 1,
	Lesson: map[string][]string{
		"lesson_id":   {"lesson_id", "id", "lessonId", "lesson.id"},
		"title":       {"lesson_title", "title", "name", "title_text", "label", "heading"},
		"description": {"description", "summary", "details", "text"},
		"icon":        {"icon", "emoji", "symbol"},
		"category":    {"category"},
		"order_index": {"order", "order_index", "orderIndex", "order.index", "orderObj.index"},
		"level":       {"level"},
		"xp_award":    {"xp_award", "xpAward"},
	},
	Question: map[string][]string{
		"id":            {"id", "question_id"},
		"lesson_id":     {"lesson_id", "lessonId", "lesson.id"},
		"question_type": {"question_type", "type", "kind"},
		"question_text": {"question_text", "questionText", "text", "prompt"},
		"image_url":     {"question_image_url", "question_img_url", "image_url", "questionImageUrl", "imageUrl", "image.url"},
		"xp":            {"xp", "points", "score", "stats.xp", "meta.xp"},
		"explanation":   {"explanation", "explain", "details"},
	},
	Answer: map[string][]string{
		"id":          {"id", "answer_id"},
		"question_id": {"question_id", "questionId"},
		"answer_text": {"answer_text", "answerText", "text"},
		"image_url":   {"answer_image_url", "image_url", "imageUrl"},
		"is_correct":  {"is_correct", "isCorrect", "correct"},
		"order_index": {"order", "order_index", "orderIndex", "order.index"},
	},
	Profile: map[string][]string{
		"user_id":      {"user_id", "userId", "id"},
		"display_name": {"display_name", "displayName", "name"},
		"bio":          {"bio", "about"},
		"country":      {"country"},
		"region":       {"region", "state"},
		"total_xp":     {"total_xp", "totalXp", "xp"},
		"badges":       {"badges"},
	},
}
