package form

import (
	"testing"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/pkg/config"
)

func testCfg() config.PostsConfig {
	return config.PostsConfig{MaxTags: 3, MinTitleLen: 10}
}

func TestAddTag(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		input    string
		added    bool
		want     []string
	}{
		{"plain", nil, "go", true, []string{"go"}},
		{"trims whitespace", nil, "  redis  ", true, []string{"redis"}},
		{"empty rejected", nil, "   ", false, nil},
		{"duplicate rejected", []string{"go"}, "go", false, []string{"go"}},
		{"duplicate is case-insensitive", []string{"Go"}, "gO", false, []string{"Go"}},
		{"full set rejected", []string{"a", "b", "c"}, "d", false, []string{"a", "b", "c"}},
		{"stored verbatim, no slug", nil, "Web Dev", true, []string{"Web Dev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(models.KindQuestion, testCfg())
			f.Tags = append(f.Tags, tt.existing...)

			added := f.AddTag(tt.input)
			if added != tt.added {
				t.Errorf("AddTag(%q) = %v, want %v", tt.input, added, tt.added)
			}
			if len(f.Tags) != len(tt.want) {
				t.Fatalf("Tags = %v, want %v", f.Tags, tt.want)
			}
			for i, tag := range tt.want {
				if f.Tags[i] != tag {
					t.Errorf("Tags[%d] = %q, want %q", i, f.Tags[i], tag)
				}
			}
		})
	}
}

func TestRemoveAndPopTag(t *testing.T) {
	f := New(models.KindQuestion, testCfg())
	f.AddTag("go")
	f.AddTag("redis")
	f.AddTag("gin")

	if !f.RemoveTag("REDIS") {
		t.Error("RemoveTag should match case-insensitively")
	}
	if f.RemoveTag("missing") {
		t.Error("RemoveTag should report a miss")
	}
	if len(f.Tags) != 2 || f.Tags[0] != "go" || f.Tags[1] != "gin" {
		t.Fatalf("Tags = %v after remove", f.Tags)
	}

	last, ok := f.PopTag()
	if !ok || last != "gin" {
		t.Errorf("PopTag = %q, %v", last, ok)
	}
	f.PopTag()
	if _, ok := f.PopTag(); ok {
		t.Error("PopTag on empty set should report false")
	}
}

func TestErrorsPerKind(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*PostForm)
		kind    models.PostKind
		missing []string
	}{
		{
			name:    "question needs body",
			kind:    models.KindQuestion,
			prepare: func(f *PostForm) { f.Title = "A long enough title" },
			missing: []string{FieldQuestionBody},
		},
		{
			name:    "article needs abstract and content",
			kind:    models.KindArticle,
			prepare: func(f *PostForm) { f.Title = "A long enough title" },
			missing: []string{FieldArticleAbstract, FieldArticleContent},
		},
		{
			name:    "tutorial needs description",
			kind:    models.KindTutorial,
			prepare: func(f *PostForm) { f.Title = "A long enough title" },
			missing: []string{FieldTutorialDescription},
		},
		{
			name:    "short title flagged",
			kind:    models.KindQuestion,
			prepare: func(f *PostForm) { f.Title = "short"; f.QuestionBody = "body" },
			missing: []string{FieldTitle},
		},
		{
			name:    "whitespace-only body flagged",
			kind:    models.KindQuestion,
			prepare: func(f *PostForm) { f.Title = "A long enough title"; f.QuestionBody = "   " },
			missing: []string{FieldQuestionBody},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.kind, testCfg())
			tt.prepare(f)

			errs := f.Errors()
			if len(errs) != len(tt.missing) {
				t.Errorf("Errors = %v, want keys %v", errs, tt.missing)
			}
			for _, key := range tt.missing {
				if errs[key] == "" {
					t.Errorf("Expected a message for %q, got none", key)
				}
			}
			if f.Valid() {
				t.Error("Form should be invalid")
			}
		})
	}
}

func TestValidForm(t *testing.T) {
	f := New(models.KindArticle, testCfg())
	f.Title = "Profiling Go services in production"
	f.ArticleAbstract = "What pprof can tell you"
	f.ArticleContent = "Start with a 30 second CPU profile."
	f.AddTag("go")
	f.AddTag("pprof")

	if !f.Valid() {
		t.Errorf("Form should be valid, errors: %v", f.Errors())
	}
}

func TestUnknownKindFlagged(t *testing.T) {
	f := New("poem", testCfg())
	f.Title = "A long enough title"

	errs := f.Errors()
	if errs[FieldKind] == "" {
		t.Errorf("Expected a type error, got %v", errs)
	}
}

func TestZeroConfigFallsBackToDefaults(t *testing.T) {
	f := New(models.KindQuestion, config.PostsConfig{})

	// Tag cap defaults to 3, not zero
	for _, tag := range []string{"a", "b", "c"} {
		if !f.AddTag(tag) {
			t.Fatalf("AddTag(%q) rejected under default limits", tag)
		}
	}
	if f.AddTag("d") {
		t.Error("fourth tag should be rejected under the default cap")
	}

	// Title minimum defaults to 10, so an empty title is invalid
	f.QuestionBody = "body"
	if errs := f.Errors(); errs[FieldTitle] == "" {
		t.Errorf("empty title accepted under default limits: %v", errs)
	}
	f.Title = "A long enough title"
	if !f.Valid() {
		t.Errorf("form should be valid, errors: %v", f.Errors())
	}
}

func TestResetPreservesKind(t *testing.T) {
	f := New(models.KindTutorial, testCfg())
	f.Title = "Deploying with systemd units"
	f.TutorialDescription = "Unit files, restarts, logs."
	f.AddTag("linux")
	f.ImageFile = "cover.png"

	f.Reset()

	if f.Kind != models.KindTutorial {
		t.Errorf("Kind = %q after reset", f.Kind)
	}
	if f.Title != "" || f.TutorialDescription != "" || f.ImageFile != "" {
		t.Error("Reset should clear all fields")
	}
	if len(f.Tags) != 0 {
		t.Errorf("Tags = %v after reset", f.Tags)
	}
	// Limits survive the reset
	f.AddTag("a")
	f.AddTag("b")
	f.AddTag("c")
	if f.AddTag("d") {
		t.Error("MaxTags should still apply after reset")
	}
}
