package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drakeRAGE/movie-recommendation-app/internal/middleware"
	"github.com/drakeRAGE/movie-recommendation-app/internal/model"
	"github.com/drakeRAGE/movie-recommendation-app/internal/recommend"
	"github.com/drakeRAGE/movie-recommendation-app/internal/storage"
)

// Recommender is the part of recommend.Service the handler uses.
// Accepting an interface lets tests drive the handler without a model.
type Recommender interface {
	Recommend(ctx context.Context, query string) (recommend.Result, error)
	ProviderName() string
	ModelName() string
}

// RecommendRequest is the JSON body of POST /api/v1/recommend.
type RecommendRequest struct {
	UserInput string `json:"user_input"`
}

// RecommendResponse is the success body.
type RecommendResponse struct {
	Recommendations []model.Movie `json:"recommendations"`
}

// ErrorResponse is the failure body. Error is always recommend.UserMessage
// for pipeline failures; Kind lets clients branch without parsing text.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// RecommendHandler serves movie recommendations and audits every call.
type RecommendHandler struct {
	svc    Recommender
	calls  storage.CallRepository
	logger *zap.Logger
}

// NewRecommendHandler creates a RecommendHandler. calls may be nil, in which
// case nothing is audited.
func NewRecommendHandler(svc Recommender, calls storage.CallRepository, logger *zap.Logger) *RecommendHandler {
	return &RecommendHandler{
		svc:    svc,
		calls:  calls,
		logger: logger,
	}
}

// Recommend turns the user's preference into a list of movies.
// Route: POST /api/v1/recommend
func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Kind:  string(recommend.KindValidation),
		})
		return
	}

	requestID := c.GetString(middleware.ContextKeyRequestID)
	start := time.Now()
	res, err := h.svc.Recommend(c.Request.Context(), req.UserInput)
	elapsed := time.Since(start)

	outcome := outcomeOf(err)
	h.audit(c.Request.Context(), &model.CompletionCall{
		RequestID:  requestID,
		Provider:   h.svc.ProviderName(),
		Model:      h.svc.ModelName(),
		Outcome:    outcome,
		MovieCount: len(res.Movies),
		Attempts:   res.Attempts,
		DurationMs: durationMs(elapsed),
	})

	if err != nil {
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("kind", string(outcome)),
			zap.Int("attempts", res.Attempts),
			zap.Error(err),
		}
		var recErr *recommend.Error
		if errors.As(err, &recErr) && recErr.Raw != "" {
			fields = append(fields, zap.Int("raw_length", len(recErr.Raw)))
		}

		if outcome == model.OutcomeCanceled {
			// The client is gone; there is nobody to answer.
			h.logger.Info("recommendation abandoned by client", fields...)
			c.Abort()
			return
		}

		h.logger.Warn("recommendation failed", fields...)
		c.JSON(statusFor(outcome), ErrorResponse{
			Error: recommend.UserMessage,
			Kind:  string(outcome),
		})
		return
	}

	h.logger.Info("recommendation served",
		zap.String("request_id", requestID),
		zap.Int("movies", len(res.Movies)),
		zap.Int("attempts", res.Attempts),
		zap.Duration("duration", elapsed),
	)
	c.JSON(http.StatusOK, RecommendResponse{Recommendations: res.Movies})
}

// audit records the call. A failing audit write is logged, never surfaced.
func (h *RecommendHandler) audit(ctx context.Context, call *model.CompletionCall) {
	if h.calls == nil {
		return
	}
	// The request context may already be cancelled when the client left.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := h.calls.Create(ctx, call); err != nil {
		h.logger.Error("recording completion call",
			zap.String("request_id", call.RequestID),
			zap.Error(err),
		)
	}
}

func outcomeOf(err error) model.Outcome {
	if err == nil {
		return model.OutcomeSuccess
	}
	switch recommend.KindOf(err) {
	case recommend.KindValidation:
		return model.OutcomeValidation
	case recommend.KindRateLimited:
		return model.OutcomeRateLimited
	case recommend.KindAuth:
		return model.OutcomeAuth
	case recommend.KindQuota:
		return model.OutcomeQuota
	case recommend.KindParse:
		return model.OutcomeParse
	case recommend.KindCanceled:
		return model.OutcomeCanceled
	default:
		return model.OutcomeTransport
	}
}

func statusFor(outcome model.Outcome) int {
	if outcome == model.OutcomeValidation {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func durationMs(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
