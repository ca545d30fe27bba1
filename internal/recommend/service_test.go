package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/drakeRAGE/movie-recommendation-app/internal/config"
	"github.com/drakeRAGE/movie-recommendation-app/internal/llm"
	"github.com/drakeRAGE/movie-recommendation-app/internal/prompt"
)

// stubResponse is one scripted answer. If fn is set it is called instead of
// returning reply/err, which lets a test block on the context.
type stubResponse struct {
	reply string
	err   error
	fn    func(ctx context.Context, req llm.CompletionRequest) (string, error)
}

// stubClient implements llm.Client with scripted responses. The last response
// repeats once the script runs out.
type stubClient struct {
	mu        sync.Mutex
	responses []stubResponse
	calls     int
	requests  []llm.CompletionRequest
}

func (s *stubClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.requests = append(s.requests, req)
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	r := s.responses[i]
	s.mu.Unlock()

	if r.fn != nil {
		return r.fn(ctx, req)
	}
	return r.reply, r.err
}

func (s *stubClient) ProviderName() string { return "stub" }
func (s *stubClient) ModelName() string { return "stub-model" }

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		MaxOutputTokens: 500,
		Temperature:     0.2,
		Timeout:         50 * time.Millisecond,
		Retry:           config.RetryConfig{MaxRetries: 1, Backoff: time.Millisecond},
	}
}

func newTestService(client llm.Client, mutate ...func(*config.LLMConfig)) *Service {
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	return NewService(client, cfg, zap.NewNop())
}

func noRetries(c *config.LLMConfig) { c.Retry.MaxRetries = 0 }

// blockUntilDone simulates a provider that never answers within the timeout.
func blockUntilDone(ctx context.Context, _ llm.CompletionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func requireKind(t *testing.T, err error, want Kind) *Error {
	t.Helper()
	var recErr *Error
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *Error of kind %s, got %v", want, err)
	}
	if recErr.Kind != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, recErr.Kind, recErr)
	}
	return recErr
}

const threeMovies = `Alien | 1979 | Ripley is one of cinema's great action heroines.
Kill Bill: Vol. 1 | 2003 | The Bride carries the whole film.
Mad Max: Fury Road | 2015 | Furiosa drives the story.`

func TestRecommend_EndToEnd(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{reply: threeMovies}}}
	svc := newTestService(client)

	res, err := svc.Recommend(context.Background(), "action movies with a strong female lead")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"Alien", "Kill Bill: Vol. 1", "Mad Max: Fury Road"}
	if len(res.Movies) != len(want) {
		t.Fatalf("expected %d movies, got %d", len(want), len(res.Movies))
	}
	for i, m := range res.Movies {
		if m.Title != want[i] {
			t.Errorf("movie %d: expected %q, got %q", i, want[i], m.Title)
		}
		if m.Reason == nil {
			t.Errorf("movie %d: expected a reason", i)
		}
	}
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}

	// The request carries the prompt and the configured bounds.
	req := client.requests[0]
	if !strings.Contains(req.User, "action movies with a strong female lead") {
		t.Errorf("user text missing query: %q", req.User)
	}
	if req.System == "" {
		t.Error("expected system instructions")
	}
	if req.MaxTokens != 500 || req.Temperature != 0.2 {
		t.Errorf("unexpected bounds: max_tokens=%d temperature=%v", req.MaxTokens, req.Temperature)
	}
}

func TestRecommend_ValidationShortCircuit(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		client := &stubClient{responses: []stubResponse{{reply: threeMovies}}}
		svc := newTestService(client)

		_, err := svc.Recommend(context.Background(), q)
		requireKind(t, err, KindValidation)
		if client.callCount() != 0 {
			t.Errorf("query %q: expected no calls, got %d", q, client.callCount())
		}
	}
}

func TestRecommend_ParseRobustness(t *testing.T) {
	reply := "Alien | 1979 | Classic.\n | 2001 | This line has no title."
	svc := newTestService(&stubClient{responses: []stubResponse{{reply: reply}}})

	res, err := svc.Recommend(context.Background(), "space horror")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Movies) != 1 || res.Movies[0].Title != "Alien" {
		t.Fatalf("expected only the well-formed record, got %+v", res.Movies)
	}
}

func TestRecommend_ParseFailure(t *testing.T) {
	reply := "I'm sorry, I can't help with that."
	svc := newTestService(&stubClient{responses: []stubResponse{{reply: reply}}})

	_, err := svc.Recommend(context.Background(), "anything")
	recErr := requireKind(t, err, KindParse)
	if recErr.Raw != reply {
		t.Errorf("expected raw reply attached, got %q", recErr.Raw)
	}
}

func TestRecommend_Truncation(t *testing.T) {
	var lines []string
	for i := 1; i <= prompt.MaxMovies+5; i++ {
		lines = append(lines, fmt.Sprintf("Movie %d | %d | reason", i, 1990+i))
	}
	svc := newTestService(&stubClient{responses: []stubResponse{{reply: strings.Join(lines, "\n")}}})

	res, err := svc.Recommend(context.Background(), "lots of movies")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Movies) != prompt.MaxMovies {
		t.Fatalf("expected %d movies, got %d", prompt.MaxMovies, len(res.Movies))
	}
	for i, m := range res.Movies {
		if want := fmt.Sprintf("Movie %d", i+1); m.Title != want {
			t.Errorf("position %d: expected %q, got %q", i, want, m.Title)
		}
	}
}

func TestRecommend_TimeoutThenSuccess(t *testing.T) {
	client := &stubClient{responses: []stubResponse{
		{fn: blockUntilDone},
		{reply: threeMovies},
	}}
	svc := newTestService(client)

	res, err := svc.Recommend(context.Background(), "heist movies")
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if len(res.Movies) != 3 {
		t.Errorf("expected 3 movies, got %d", len(res.Movies))
	}
	if client.callCount() != 2 || res.Attempts != 2 {
		t.Errorf("expected 2 calls, got calls=%d attempts=%d", client.callCount(), res.Attempts)
	}
}

func TestRecommend_TwoTimeouts(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{fn: blockUntilDone}}}
	svc := newTestService(client)

	res, err := svc.Recommend(context.Background(), "heist movies")
	recErr := requireKind(t, err, KindTransport)
	if !errors.Is(recErr, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded in chain, got %v", recErr)
	}
	if client.callCount() != 2 || res.Attempts != 2 {
		t.Errorf("expected exactly 2 calls, got calls=%d attempts=%d", client.callCount(), res.Attempts)
	}
}

func TestRecommend_NoRetryByDefault(t *testing.T) {
	client := &stubClient{responses: []stubResponse{{fn: blockUntilDone}}}
	svc := newTestService(client, noRetries)

	_, err := svc.Recommend(context.Background(), "heist movies")
	requireKind(t, err, KindTransport)
	if client.callCount() != 1 {
		t.Errorf("expected 1 call with retries disabled, got %d", client.callCount())
	}
}

func TestRecommend_NonTransientFailuresNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"unauthorized", &llm.StatusError{Provider: "stub", StatusCode: http.StatusUnauthorized, Err: errors.New("bad key")}, KindAuth},
		{"forbidden", &llm.StatusError{Provider: "stub", StatusCode: http.StatusForbidden, Err: errors.New("no access")}, KindAuth},
		{"quota", &llm.StatusError{Provider: "stub", StatusCode: http.StatusTooManyRequests, Code: "insufficient_quota", Err: errors.New("quota")}, KindQuota},
		{"bad request", &llm.StatusError{Provider: "stub", StatusCode: http.StatusBadRequest, Err: errors.New("invalid")}, KindTransport},
		{"empty reply", fmt.Errorf("stub: %w", llm.ErrEmptyResponse), KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubClient{responses: []stubResponse{{err: tt.err}, {reply: threeMovies}}}
			svc := newTestService(client)

			_, err := svc.Recommend(context.Background(), "anything")
			recErr := requireKind(t, err, tt.kind)
			if recErr.Transient {
				t.Error("expected a non-transient error")
			}
			if client.callCount() != 1 {
				t.Errorf("expected a single attempt, got %d", client.callCount())
			}
		})
	}
}

func TestRecommend_TransientStatusRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   Kind
	}{
		{"rate limited", http.StatusTooManyRequests, KindRateLimited},
		{"server error", http.StatusInternalServerError, KindTransport},
		{"overloaded", 529, KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusErr := &llm.StatusError{Provider: "stub", StatusCode: tt.status, Err: errors.New("try later")}

			// Fails twice: surfaced after the single retry.
			client := &stubClient{responses: []stubResponse{{err: statusErr}}}
			_, err := newTestService(client).Recommend(context.Background(), "anything")
			recErr := requireKind(t, err, tt.kind)
			if recErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, recErr.StatusCode)
			}
			if client.callCount() != 2 {
				t.Errorf("expected 2 calls, got %d", client.callCount())
			}

			// Fails once: the retry succeeds.
			client = &stubClient{responses: []stubResponse{{err: statusErr}, {reply: threeMovies}}}
			if _, err := newTestService(client).Recommend(context.Background(), "anything"); err != nil {
				t.Errorf("expected success on retry, got %v", err)
			}
		})
	}
}

func TestRecommend_CallerCancelDuringCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &stubClient{responses: []stubResponse{{fn: func(ctx context.Context, _ llm.CompletionRequest) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}}}}
	svc := newTestService(client, func(c *config.LLMConfig) { c.Timeout = time.Second })

	_, err := svc.Recommend(ctx, "anything")
	requireKind(t, err, KindCanceled)
	if client.callCount() != 1 {
		t.Errorf("a cancelled call must not be retried, got %d calls", client.callCount())
	}
}

func TestRecommend_ReplyDiscardedAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// The reply arrives, but the caller has gone away by then.
	client := &stubClient{responses: []stubResponse{{fn: func(context.Context, llm.CompletionRequest) (string, error) {
		cancel()
		return threeMovies, nil
	}}}}
	svc := newTestService(client)

	res, err := svc.Recommend(ctx, "anything")
	requireKind(t, err, KindCanceled)
	if len(res.Movies) != 0 {
		t.Errorf("expected no movies for an abandoned call, got %d", len(res.Movies))
	}
}

func TestRecommend_CallerDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	client := &stubClient{responses: []stubResponse{{fn: blockUntilDone}}}
	svc := newTestService(client, func(c *config.LLMConfig) { c.Timeout = time.Second })

	_, err := svc.Recommend(ctx, "anything")
	recErr := requireKind(t, err, KindTransport)
	if recErr.Transient {
		t.Error("a caller deadline must not be treated as retryable")
	}
	if client.callCount() != 1 {
		t.Errorf("expected 1 call, got %d", client.callCount())
	}
}

func TestRecommend_ConcurrentCallsIndependent(t *testing.T) {
	// The stub echoes the query back as the movie title.
	client := &stubClient{responses: []stubResponse{{fn: func(_ context.Context, req llm.CompletionRequest) (string, error) {
		first := strings.SplitN(req.User, "\n", 2)[0]
		query := strings.TrimPrefix(first, "User preference: ")
		return query + " | 2000 | echo", nil
	}}}}
	svc := newTestService(client)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			query := fmt.Sprintf("query-%d", i)
			res, err := svc.Recommend(context.Background(), query)
			if err != nil {
				errs <- err
				return
			}
			if len(res.Movies) != 1 || res.Movies[0].Title != query {
				errs <- fmt.Errorf("query %s got %+v", query, res.Movies)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

// TestRecommend_ResultInvariants feeds randomly mangled replies through the
// service and checks the result shape holds for every one of them.
func TestRecommend_ResultInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	fragments := []string{
		"Alien | 1979 | fine",
		" | 1980 | no title",
		"just chatter",
		"**** | | ",
		"1. Heat | 1995 |",
		"",
		"- Ronin | (1998) | cars",
		"Title | Year | Reason",
		"| Aliens | 1986 | table row |",
		"|---|---|---|",
		"**Heat** (1995) | | bold",
	}

	for i := 0; i < 200; i++ {
		n := rng.Intn(20)
		lines := make([]string, n)
		for j := range lines {
			lines[j] = fragments[rng.Intn(len(fragments))]
		}
		reply := strings.Join(lines, "\n")

		svc := newTestService(&stubClient{responses: []stubResponse{{reply: reply}}})
		res, err := svc.Recommend(context.Background(), "anything")

		if err != nil {
			requireKind(t, err, KindParse)
			continue
		}
		if len(res.Movies) == 0 || len(res.Movies) > prompt.MaxMovies {
			t.Fatalf("reply %q: success with %d movies", reply, len(res.Movies))
		}
		for _, m := range res.Movies {
			if strings.TrimSpace(m.Title) == "" {
				t.Fatalf("reply %q: blank title in result", reply)
			}
		}
	}
}
