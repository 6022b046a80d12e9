// Package form holds in-progress post composition state and computes field
// level validity without touching storage. The submission handler reads a
// valid form and calls the post service; an invalid form never leaves the
// client boundary.
package form

import (
	"fmt"
	"strings"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/pkg/config"
)

// Form field names used as keys in the Errors map
const (
	FieldTitle               = "title"
	FieldTags                = "tags"
	FieldQuestionBody        = "questionBody"
	FieldArticleAbstract     = "articleAbstract"
	FieldArticleContent      = "articleContent"
	FieldTutorialDescription = "tutorialDescription"
	FieldKind                = "type"
)

// PostForm accumulates the fields of a post being composed. Image and video
// hold pending local file names; nothing is uploaded until submission.
type PostForm struct {
	Kind                models.PostKind
	Title               string
	Tags                []string
	QuestionBody        string
	ArticleAbstract     string
	ArticleContent      string
	TutorialDescription string
	ImageFile           string
	VideoFile           string

	maxTags     int
	minTitleLen int
}

// New creates an empty form for the given post kind. Unset limits fall back
// to the repository defaults, matching the service's tag normalization.
func New(kind models.PostKind, cfg config.PostsConfig) *PostForm {
	maxTags := cfg.MaxTags
	if maxTags <= 0 {
		maxTags = 3
	}
	minTitleLen := cfg.MinTitleLen
	if minTitleLen <= 0 {
		minTitleLen = 10
	}
	return &PostForm{
		Kind:        kind,
		Tags:        []string{},
		maxTags:     maxTags,
		minTitleLen: minTitleLen,
	}
}

// AddTag trims the input and appends it. Empty input, a case-insensitive
// duplicate, or a full tag set leave the form unchanged and return false.
// Tags are stored verbatim, not slugified.
func (f *PostForm) AddTag(raw string) bool {
	tag := strings.TrimSpace(raw)
	if tag == "" {
		return false
	}
	if len(f.Tags) >= f.maxTags {
		return false
	}
	for _, existing := range f.Tags {
		if strings.EqualFold(existing, tag) {
			return false
		}
	}
	f.Tags = append(f.Tags, tag)
	return true
}

// RemoveTag drops the first tag equal to the argument (case-insensitive)
func (f *PostForm) RemoveTag(tag string) bool {
	for i, existing := range f.Tags {
		if strings.EqualFold(existing, tag) {
			f.Tags = append(f.Tags[:i], f.Tags[i+1:]...)
			return true
		}
	}
	return false
}

// PopTag removes and returns the most recently added tag. Backspace UX.
func (f *PostForm) PopTag() (string, bool) {
	if len(f.Tags) == 0 {
		return "", false
	}
	last := f.Tags[len(f.Tags)-1]
	f.Tags = f.Tags[:len(f.Tags)-1]
	return last, true
}

// Errors recomputes the field-to-message map from current state. An empty map
// means the form can be submitted.
func (f *PostForm) Errors() map[string]string {
	errs := make(map[string]string)

	if len(strings.TrimSpace(f.Title)) < f.minTitleLen {
		errs[FieldTitle] = fmt.Sprintf("title must be at least %d characters", f.minTitleLen)
	}
	if len(f.Tags) > f.maxTags {
		errs[FieldTags] = fmt.Sprintf("at most %d tags allowed", f.maxTags)
	}

	switch f.Kind {
	case models.KindQuestion:
		if strings.TrimSpace(f.QuestionBody) == "" {
			errs[FieldQuestionBody] = "question body is required"
		}
	case models.KindArticle:
		if strings.TrimSpace(f.ArticleAbstract) == "" {
			errs[FieldArticleAbstract] = "article abstract is required"
		}
		if strings.TrimSpace(f.ArticleContent) == "" {
			errs[FieldArticleContent] = "article content is required"
		}
	case models.KindTutorial:
		if strings.TrimSpace(f.TutorialDescription) == "" {
			errs[FieldTutorialDescription] = "tutorial description is required"
		}
	default:
		errs[FieldKind] = fmt.Sprintf("unknown post type %q", f.Kind)
	}

	return errs
}

// Valid reports whether Errors is empty
func (f *PostForm) Valid() bool {
	return len(f.Errors()) == 0
}

// Reset clears every field back to its zero state, preserving the selected
// post kind
func (f *PostForm) Reset() {
	kind := f.Kind
	maxTags, minTitle := f.maxTags, f.minTitleLen
	*f = PostForm{
		Kind:        kind,
		Tags:        []string{},
		maxTags:     maxTags,
		minTitleLen: minTitle,
	}
}
