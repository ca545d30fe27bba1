// Package recommend turns a user's free-text movie preference into a list of
// movies by asking a completion model and parsing its reply.
//
// The pipeline for one call:
//
//	validate query → build prompt → complete (optionally retried once) → parse → truncate
//
// A Service keeps no state between calls beyond its configuration, so one
// instance can serve any number of concurrent requests.
package recommend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/drakeRAGE/movie-recommendation-app/internal/config"
	"github.com/drakeRAGE/movie-recommendation-app/internal/llm"
	"github.com/drakeRAGE/movie-recommendation-app/internal/model"
	"github.com/drakeRAGE/movie-recommendation-app/internal/prompt"
)

// Result is a successful recommendation.
type Result struct {
	Movies   []model.Movie // never empty on success, at most prompt.MaxMovies
	Attempts int           // completion calls made, also set on failure
}

// Service is the recommendation pipeline around one llm.Client.
type Service struct {
	client          llm.Client
	maxOutputTokens int
	temperature     float64
	timeout         time.Duration
	maxRetries      int
	backoff         time.Duration
	logger          *zap.Logger
}

// NewService creates a Service. Configuration is passed in explicitly so tests
// can run it against a stub client with any settings.
func NewService(client llm.Client, cfg config.LLMConfig, logger *zap.Logger) *Service {
	return &Service{
		client:          client,
		maxOutputTokens: cfg.MaxOutputTokens,
		temperature:     cfg.Temperature,
		timeout:         cfg.Timeout,
		maxRetries:      cfg.Retry.MaxRetries,
		backoff:         cfg.Retry.Backoff,
		logger:          logger,
	}
}

func (s *Service) ProviderName() string { return s.client.ProviderName() }
func (s *Service) ModelName() string { return s.client.ModelName() }

// Recommend returns movies for the query, or an error that is always a *Error.
//
// The caller's context bounds the whole call including the retry wait. If it is
// cancelled the reply is discarded, even when it already arrived.
func (s *Service) Recommend(ctx context.Context, query string) (Result, error) {
	q, err := prompt.NewQuery(query)
	if err != nil {
		return Result{}, &Error{Kind: KindValidation, Err: err}
	}

	spec := prompt.Build(q)
	req := llm.CompletionRequest{
		System:      spec.SystemInstructions,
		User:        spec.UserText,
		MaxTokens:   s.maxOutputTokens,
		Temperature: s.temperature,
	}

	var res Result
	reply, recErr := s.complete(ctx, req, &res)
	if recErr != nil {
		return res, recErr
	}

	// Last chance for a caller that has moved on: don't hand it a result.
	if ctx.Err() != nil {
		return res, contextError(ctx.Err())
	}

	lines := ParseReply(reply)
	movies := validMovies(lines)
	for _, l := range lines {
		if !l.Valid() {
			s.logger.Debug("skipped reply line",
				zap.Int("line", l.Line),
				zap.String("reason", l.Skip),
			)
		}
	}

	if len(movies) == 0 {
		return res, &Error{Kind: KindParse, Raw: reply, Err: errNoMovies(len(lines))}
	}

	if len(movies) > spec.MaxMovies {
		s.logger.Debug("truncating recommendations",
			zap.Int("parsed", len(movies)),
			zap.Int("max", spec.MaxMovies),
		)
		movies = movies[:spec.MaxMovies]
	}

	res.Movies = movies
	return res, nil
}

// complete makes the completion call, retrying once on a transient failure
// when retries are enabled. res.Attempts is updated as attempts are made.
func (s *Service) complete(ctx context.Context, req llm.CompletionRequest, res *Result) (string, *Error) {
	for attempt := 1; ; attempt++ {
		res.Attempts = attempt

		start := time.Now()
		reply, err := s.attempt(ctx, req)
		if err == nil {
			s.logger.Info("completion succeeded",
				zap.String("provider", s.client.ProviderName()),
				zap.String("model", s.client.ModelName()),
				zap.Int("attempt", attempt),
				zap.Duration("duration", time.Since(start)),
			)
			return reply, nil
		}

		recErr := classify(ctx, err)
		fields := []zap.Field{
			zap.String("provider", s.client.ProviderName()),
			zap.String("model", s.client.ModelName()),
			zap.Int("attempt", attempt),
			zap.String("kind", string(recErr.Kind)),
			zap.Bool("transient", recErr.Transient),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		}

		if !recErr.Transient || attempt > s.maxRetries {
			s.logger.Warn("completion failed", fields...)
			return "", recErr
		}

		s.logger.Warn("completion failed, retrying", append(fields, zap.Duration("backoff", s.backoff))...)
		if err := wait(ctx, s.backoff); err != nil {
			return "", contextError(err)
		}
	}
}

// attempt is one completion call bounded by the per-attempt timeout.
func (s *Service) attempt(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.client.Complete(ctx, req)
}

// wait sleeps for d unless ctx is done first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
