package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/domain"
)

// APIHandler serves the admin and player REST endpoints.
type APIHandler struct {
	quizzes *app.QuizService
	games   *app.GameService
}

func NewAPIHandler(quizzes *app.QuizService, games *app.GameService) *APIHandler {
	return &APIHandler{quizzes: quizzes, games: games}
}

type createQuizRequest struct {
	Title     string                 `json:"title"`
	Questions []domain.QuestionDraft `json:"questions"`
}

type createQuizResponse struct {
	QuizID         string `json:"quizId"`
	Title          string `json:"title"`
	QuestionsCount int    `json:"questionsCount"`
}

type createGameRequest struct {
	QuizID string `json:"quizId"`
}

type joinRequest struct {
	PlayerName string `json:"playerName"`
}

type joinResponse struct {
	PlayerID string `json:"playerId"`
	GameID   string `json:"gameId"`
}

type currentQuestionResponse struct {
	QuestionNumber int                 `json:"questionNumber"`
	Question       domain.QuestionView `json:"question"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quizzes", h.createQuiz)
	mux.HandleFunc("GET /api/quizzes", h.listQuizzes)
	mux.HandleFunc("GET /api/quizzes/{quizId}", h.getQuiz)
	mux.HandleFunc("POST /api/games", h.createGame)
	mux.HandleFunc("GET /api/games/{gameId}", h.getGame)
	mux.HandleFunc("POST /api/games/{gameId}/join", h.join)
	mux.HandleFunc("POST /api/games/{gameId}/start", h.start)
	mux.HandleFunc("POST /api/games/{gameId}/finish", h.finish)
	mux.HandleFunc("GET /api/games/{gameId}/question", h.currentQuestion)
	mux.HandleFunc("POST /api/games/{gameId}/answer", h.answer)
}

func (h *APIHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !decode(w, r, &req) {
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), req.Title, req.Questions)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("quiz_id", quiz.ID).Int("questions", len(quiz.Questions)).Msg("quiz created")
	writeJSON(w, http.StatusCreated, createQuizResponse{
		QuizID:         quiz.ID,
		Title:          quiz.Title,
		QuestionsCount: len(quiz.Questions),
	})
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	list, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), r.PathValue("quizId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *APIHandler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.games.CreateGame(r.Context(), req.QuizID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *APIHandler) getGame(w http.ResponseWriter, r *http.Request) {
	snap, err := h.games.Snapshot(r.Context(), r.PathValue("gameId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *APIHandler) join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "playerName is required"})
		return
	}
	gameID := r.PathValue("gameId")
	player, err := h.games.Join(r.Context(), gameID, req.PlayerName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{PlayerID: player.ID, GameID: app.NormalizeCode(gameID)})
}

func (h *APIHandler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.games.Start(r.Context(), r.PathValue("gameId")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (h *APIHandler) finish(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.games.Finish(r.Context(), r.PathValue("gameId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.GameFinishedPayload{FinalScores: ranking})
}

func (h *APIHandler) currentQuestion(w http.ResponseWriter, r *http.Request) {
	question, number, err := h.games.CurrentQuestion(r.Context(), r.PathValue("gameId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, currentQuestionResponse{QuestionNumber: number, Question: question.View()})
}

func (h *APIHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req domain.AnswerSubmission
	if !decode(w, r, &req) {
		return
	}
	result, err := h.games.SubmitAnswer(r.Context(), r.PathValue("gameId"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsConflict(err), domain.IsCapacityExceeded(err), domain.IsNoActiveQuestion(err):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuiz):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrMediaResolution):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
