package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"trivia-session-service/internal/domain"
)

const (
	// DefaultQuestionDuration is the display window when a draft does not set one.
	DefaultQuestionDuration = 10
	// MaxQuestionDuration caps the display window, in seconds.
	MaxQuestionDuration = 3600
)

// QuizRepository stores immutable quiz definitions (in-memory, Redis, Postgres, etc).
type QuizRepository interface {
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
}

// MediaResolver turns a source URL into an opaque playable reference.
type MediaResolver interface {
	Resolve(ctx context.Context, sourceURL string) (string, error)
}

// QuizService contains the quiz authoring use cases.
type QuizService struct {
	quizzes         QuizRepository
	media           MediaResolver
	defaultDuration int
	now             func() time.Time
}

func NewQuizService(quizzes QuizRepository, media MediaResolver, defaultDuration time.Duration) *QuizService {
	seconds := int(defaultDuration / time.Second)
	switch {
	case seconds <= 0:
		seconds = DefaultQuestionDuration
	case seconds > MaxQuestionDuration:
		seconds = MaxQuestionDuration
	}
	return &QuizService{
		quizzes:         quizzes,
		media:           media,
		defaultDuration: seconds,
		now:             time.Now,
	}
}

// CreateQuiz validates the drafts, resolves each question's media and stores the quiz.
func (s *QuizService) CreateQuiz(ctx context.Context, title string, drafts []domain.QuestionDraft) (domain.Quiz, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Quiz{}, fmt.Errorf("%w: title is required", domain.ErrInvalidQuiz)
	}
	if len(drafts) == 0 {
		return domain.Quiz{}, fmt.Errorf("%w: at least one question is required", domain.ErrInvalidQuiz)
	}

	questions := make([]domain.Question, 0, len(drafts))
	for i, draft := range drafts {
		question, err := s.buildQuestion(ctx, draft)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("question %d: %w", i+1, err)
		}
		questions = append(questions, question)
	}

	quiz := domain.Quiz{
		ID:        uuid.NewString(),
		Title:     title,
		Questions: questions,
		CreatedAt: s.now().UTC(),
	}
	if err := s.quizzes.SaveQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizService) buildQuestion(ctx context.Context, draft domain.QuestionDraft) (domain.Question, error) {
	if !draft.Type.Valid() {
		return domain.Question{}, fmt.Errorf("%w: unknown question type %q", domain.ErrInvalidQuiz, draft.Type)
	}
	if strings.TrimSpace(draft.CorrectAnswer) == "" {
		return domain.Question{}, fmt.Errorf("%w: correct answer is required", domain.ErrInvalidQuiz)
	}
	if draft.Duration < 0 || draft.Duration > MaxQuestionDuration {
		return domain.Question{}, fmt.Errorf("%w: duration must be between 1 and %d seconds", domain.ErrInvalidQuiz, MaxQuestionDuration)
	}

	var options []string
	if draft.Type == domain.QuestionMultipleChoice {
		if len(draft.Options) < 2 {
			return domain.Question{}, fmt.Errorf("%w: multiple choice needs at least two options", domain.ErrInvalidQuiz)
		}
		options = append(options, draft.Options...)
	}

	ref, err := s.media.Resolve(ctx, draft.SourceURL)
	if err != nil {
		return domain.Question{}, err
	}

	duration := draft.Duration
	if duration == 0 {
		duration = s.defaultDuration
	}
	return domain.Question{
		ID:            uuid.NewString(),
		Type:          draft.Type,
		MediaRef:      ref,
		SourceURL:     draft.SourceURL,
		Options:       options,
		CorrectAnswer: draft.CorrectAnswer,
		Duration:      duration,
	}, nil
}

// GetQuiz returns the full quiz, correct answers included.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// ListQuizzes returns quiz summaries, oldest first.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return s.quizzes.ListQuizzes(ctx)
}
