package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trivia-session-service/internal/domain"
)

// QuizRepository stores quizzes in Redis as JSON documents.
// Quizzes are stored as: SET  quiz:{quizID} {json}
// The listing index is:  ZADD quiz:index {createdAt unix nanos} {quizID}
type QuizRepository struct {
	client *redis.Client
}

func NewQuizRepository(client *redis.Client) *QuizRepository {
	return &QuizRepository{client: client}
}

func (r *QuizRepository) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.quizKey(quiz.ID), data, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(quiz.CreatedAt.UnixNano()), Member: quiz.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	raw, err := r.client.Get(ctx, r.quizKey(quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	ids, err := r.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list quiz ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.QuizSummary{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.quizKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load quizzes: %w", err)
	}

	summaries := make([]domain.QuizSummary, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// index entry without a document
			continue
		}
		var quiz domain.Quiz
		if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		summaries = append(summaries, quiz.Summary())
	}
	return summaries, nil
}

const indexKey = "quiz:index"

func (r *QuizRepository) quizKey(quizID string) string {
	return "quiz:" + quizID
}
