package lesson

import (
	"strings"

	"github.com/mind-engage/fungiquest/internal/schema"
)

type Layout int

const (
	// LayoutTextOnly lists text answers with no images.
	LayoutTextOnly Layout = iota
	// LayoutImageQuestion shows one question image above text answers.
	LayoutImageQuestion
	// LayoutImageGrid shows the answers as a grid of images.
	LayoutImageGrid
)

func (l Layout) String() string {
	switch l {
	case LayoutImageQuestion:
		return "image-question"
	case LayoutImageGrid:
		return "image-grid"
	default:
		return "text-only"
	}
}

// placeholders are image values exported data uses to mean "no image".
var placeholders = map[string]bool{
	"null": true, "undefined": true, "none": true, "n/a": true,
	"na": true, "nil": true, "0": true, "-": true,
}

func ValidImage(url string) bool {
	s := strings.TrimSpace(url)
	return s != "" && !placeholders[strings.ToLower(s)]
}

// ChooseLayout picks a presentation from the question type and whichever
// images are actually present. An explicit text-only type always wins, and
// a question with no usable images falls back to text.
func ChooseLayout(q schema.Question) Layout {
	typ := strings.ToLower(q.Type)
	textOnlyType := strings.Contains(typ, "txt_only")
	imageTextType := strings.Contains(typ, "1img_4txt") || (strings.Contains(typ, "img") && strings.Contains(typ, "txt"))

	hasQuestionImage := ValidImage(q.ImageURL)
	hasImageAnswers := false
	for _, a := range q.Answers {
		if ValidImage(a.ImageURL) {
			hasImageAnswers = true
			break
		}
	}

	switch {
	case textOnlyType || (!hasQuestionImage && !hasImageAnswers):
		return LayoutTextOnly
	case hasQuestionImage || imageTextType:
		return LayoutImageQuestion
	default:
		return LayoutImageGrid
	}
}

// Columns is how many answer columns a layout uses for n answers.
func (l Layout) Columns(n int) int {
	switch l {
	case LayoutImageGrid:
		return 2
	case LayoutImageQuestion:
		if n >= 4 {
			return 2
		}
	}
	return 1
}
