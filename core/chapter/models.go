package chapter

import (
	"fmt"
	"time"

	"github.com/somaedu/soma-backend/core/ai"
	"github.com/somaedu/soma-backend/core/identity"
)

// Fixed question-set cardinalities for every generated lesson.
const (
	PracticeCount = 5
	TestCount     = 10

	MinImages    = 1
	MaxImages    = 20
	MaxImageSize = 10 << 20 // 10MB per image
)

// AllowedImageTypes is the media-type allow-list for submitted images.
var AllowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

type Subject string

const (
	SubjectMath    Subject = "math"
	SubjectScience Subject = "science"
	SubjectReading Subject = "reading"
	SubjectHistory Subject = "history"
	SubjectArt     Subject = "art"
)

var Subjects = []Subject{SubjectMath, SubjectScience, SubjectReading, SubjectHistory, SubjectArt}

func (s Subject) Valid() bool {
	for _, sub := range Subjects {
		if s == sub {
			return true
		}
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single multiple-choice item: 4 distinct options, exactly
// one correct index in [0,3].
type Question struct {
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Answer     int        `json:"answer"`
	Difficulty Difficulty `json:"difficulty"`
}

// LessonContent is the structured output of the generation pipeline.
// Once persisted it is immutable except for the full-content replace
// performed by the repair stage.
type LessonContent struct {
	Topic       string     `json:"topic"`
	Explanation []string   `json:"explanation"`
	Practice    []Question `json:"practice"`
	Test        []Question `json:"test"`
}

// ShapeIssues lists every way lc deviates from the required shape.
// An empty result means the content is structurally valid.
func (lc LessonContent) ShapeIssues() []string {
	var issues []string
	if lc.Topic == "" {
		issues = append(issues, "topic is empty")
	}
	if n := len(lc.Explanation); n < 3 || n > 5 {
		issues = append(issues, fmt.Sprintf("explanation has %d paragraphs, want 3-5", n))
	}
	if n := len(lc.Practice); n != PracticeCount {
		issues = append(issues, fmt.Sprintf("practice has %d questions, want %d", n, PracticeCount))
	}
	if n := len(lc.Test); n != TestCount {
		issues = append(issues, fmt.Sprintf("test has %d questions, want %d", n, TestCount))
	}
	for i, q := range lc.Practice {
		issues = append(issues, q.shapeIssues(fmt.Sprintf("practice[%d]", i))...)
	}
	for i, q := range lc.Test {
		issues = append(issues, q.shapeIssues(fmt.Sprintf("test[%d]", i))...)
	}
	return issues
}

func (q Question) shapeIssues(label string) []string {
	var issues []string
	if len(q.Options) != 4 {
		issues = append(issues, fmt.Sprintf("%s has %d options, want 4", label, len(q.Options)))
	} else {
		seen := make(map[string]bool, 4)
		for _, opt := range q.Options {
			if seen[opt] {
				issues = append(issues, fmt.Sprintf("%s has duplicate option %q", label, opt))
			}
			seen[opt] = true
		}
	}
	if q.Answer < 0 || q.Answer >= len(q.Options) {
		issues = append(issues, fmt.Sprintf("%s answer index %d out of range", label, q.Answer))
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		issues = append(issues, fmt.Sprintf("%s has unknown difficulty %q", label, q.Difficulty))
	}
	return issues
}

// VerificationVerdict is the outcome of a verification stage.
// It is ephemeral and exists only within a pipeline run.
type VerificationVerdict struct {
	Pass   bool     `json:"pass"`
	Issues []string `json:"issues"`
}

type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Chapter is one unit of generated content, owned by exactly one child
// and that child's parent. The row is written exactly twice: once at
// creation (processing) and once at pipeline completion (ready/error).
type Chapter struct {
	ID          string         `json:"id"`
	ChildID     string         `json:"child_id"`
	ParentID    string         `json:"parent_id"`
	Subject     Subject        `json:"subject"`
	GradeLevel  int            `json:"grade_level"`
	Status      Status         `json:"status"`
	Content     *LessonContent `json:"content,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
	CreatedAt   time.Time      `json:"created_at"` // UTC
	UpdatedAt   time.Time      `json:"updated_at"` // UTC
}

// AccessibleBy reports whether the caller may read or act on this chapter:
// the owning child, or the owning parent.
func (c Chapter) AccessibleBy(s identity.Session) bool {
	switch s := s.(type) {
	case identity.ChildSession:
		return c.ChildID == s.ChildID
	case identity.ParentSession:
		return c.ParentID == s.ParentID
	}
	return false
}

// GenerationRequest is the immutable input of one pipeline run.
type GenerationRequest struct {
	Images        []ai.ImageInput
	Subject       Subject
	GradeLevel    int
	PracticeCount int
	TestCount     int
}

// NewGenerationRequest validates the submission and freezes it into a
// GenerationRequest.
func NewGenerationRequest(images []ai.ImageInput, subject Subject, grade int) (GenerationRequest, error) {
	if n := len(images); n < MinImages || n > MaxImages {
		return GenerationRequest{}, fmt.Errorf("got %d images, want %d-%d", n, MinImages, MaxImages)
	}
	for i, img := range images {
		if len(img.Data) == 0 {
			return GenerationRequest{}, fmt.Errorf("image %d is empty", i)
		}
		if len(img.Data) > MaxImageSize {
			return GenerationRequest{}, fmt.Errorf("image %d exceeds %d bytes", i, MaxImageSize)
		}
		if !AllowedImageTypes[img.MediaType] {
			return GenerationRequest{}, fmt.Errorf("image %d has unsupported media type %q", i, img.MediaType)
		}
	}
	if !subject.Valid() {
		return GenerationRequest{}, fmt.Errorf("unknown subject %q", subject)
	}
	if grade < 1 || grade > 6 {
		return GenerationRequest{}, fmt.Errorf("grade level %d out of range 1-6", grade)
	}
	return GenerationRequest{
		Images:        images,
		Subject:       subject,
		GradeLevel:    grade,
		PracticeCount: PracticeCount,
		TestCount:     TestCount,
	}, nil
}
