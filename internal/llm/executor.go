package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureParse
	FailureSchema
	FailureEmpty
	FailureTimeout
	FailureRateLimit
	FailureServer
	FailureClient
)

func (c FailureClass) String() string {
	switch c {
	case FailureParse:
		return "parse"
	case FailureSchema:
		return "schema"
	case FailureEmpty:
		return "empty"
	case FailureTimeout:
		return "timeout"
	case FailureRateLimit:
		return "rate_limit"
	case FailureServer:
		return "server"
	case FailureClient:
		return "client"
	}
	return "none"
}

func (c FailureClass) retryable() bool {
	return c == FailureTimeout || c == FailureRateLimit || c == FailureServer
}

// Error reports why a section could not be generated.
type Error struct {
	Section string
	Class   FailureClass
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Section, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type Attempts struct {
	Attempts       int `json:"attempts"`
	ContentRetries int `json:"contentRetries"`
}

type Executor struct {
	caller      Caller
	maxAttempts int
	timeout     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewExecutor wraps caller with the retry policy. timeout bounds each
// attempt; zero leaves the parent context in charge.
func NewExecutor(caller Caller, maxAttempts int, timeout time.Duration) *Executor {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &Executor{caller: caller, maxAttempts: maxAttempts, timeout: timeout, sleep: sleepContext}
}

func (e *Executor) Caller() Caller { return e.caller }

// Run asks for section until the response parses into out and validate
// accepts it. Transport failures that look transient back off and retry;
// bad content retries with feedback appended to the prompt.
func (e *Executor) Run(ctx context.Context, section, system, prompt string, out any, validate func() error) (Attempts, error) {
	ctx, span := otel.Tracer("github.com/joelkehle/bizcase/internal/llm").Start(ctx, "llm."+section)
	defer span.End()

	metrics, err := e.run(ctx, section, system, prompt, out, validate)
	span.SetAttributes(
		attribute.String("llm.section", section),
		attribute.Int("llm.attempts", metrics.Attempts),
		attribute.Int("llm.content_retries", metrics.ContentRetries),
	)
	provider, model := Describe(e.caller)
	fields := []zap.Field{
		zap.String("section", section),
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("attempts", metrics.Attempts),
		zap.Int("content_retries", metrics.ContentRetries),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		zap.L().Warn("llm section failed", append(fields, zap.Error(err))...)
		return metrics, err
	}
	zap.L().Info("llm section generated", fields...)
	return metrics, nil
}

func (e *Executor) run(ctx context.Context, section, system, prompt string, out any, validate func() error) (Attempts, error) {
	metrics := Attempts{}
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return metrics, &Error{Section: section, Class: FailureClient, Err: eris.Errorf("output must be a non-nil pointer, got %T", out)}
	}
	elem := target.Elem()
	feedback := ""
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		metrics.Attempts = attempt
		last := attempt == e.maxAttempts
		fullPrompt := prompt + "\n\nRespond with only valid JSON matching the schema."
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		raw, err := e.call(ctx, system, fullPrompt)
		if err != nil {
			class := classifyTransportError(err)
			if class.retryable() && !last {
				if serr := e.sleep(ctx, backoffDelay(attempt)); serr != nil {
					return metrics, &Error{Section: section, Class: FailureTimeout, Err: serr}
				}
				continue
			}
			return metrics, &Error{Section: section, Class: class, Err: eris.Wrapf(err, "%s transport failure", section)}
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			if !last {
				metrics.ContentRetries++
				feedback = "Your previous response was empty. Respond with valid JSON."
				continue
			}
			return metrics, &Error{Section: section, Class: FailureEmpty, Err: eris.New("empty response")}
		}

		// Each attempt decodes into a fresh value so a rejected response
		// never leaks fields into the next one.
		clean := stripCodeFences(raw)
		fresh := reflect.New(elem.Type())
		if err := json.Unmarshal([]byte(clean), fresh.Interface()); err != nil {
			if !last {
				metrics.ContentRetries++
				feedback = "Your previous response was not valid JSON. Respond with only valid JSON."
				continue
			}
			return metrics, &Error{Section: section, Class: FailureParse, Err: eris.Wrap(err, "json parse")}
		}
		elem.Set(fresh.Elem())
		if validate != nil {
			if err := validate(); err != nil {
				elem.Set(reflect.Zero(elem.Type()))
				if !last {
					metrics.ContentRetries++
					feedback = fmt.Sprintf("Your response failed validation: %s. Fix these issues.", err)
					continue
				}
				return metrics, &Error{Section: section, Class: FailureSchema, Err: eris.Wrap(err, "validation")}
			}
		}
		return metrics, nil
	}
	return metrics, &Error{Section: section, Class: FailureServer, Err: eris.New("failed after retries")}
}

func (e *Executor) call(ctx context.Context, system, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.caller.GenerateJSON(ctx, system, prompt)
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	return s
}

func classifyTransportError(err error) FailureClass {
	if errors.Is(err, ErrNoProvider) {
		return FailureClient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return FailureClient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	if code := statusCode(err); code != 0 {
		switch {
		case code == 429:
			return FailureRateLimit
		case code >= 500:
			return FailureServer
		case code >= 400:
			return FailureClient
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"):
		return FailureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error"):
		return FailureServer
	case strings.Contains(msg, "status code: 4"):
		return FailureClient
	default:
		return FailureServer
	}
}

func statusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
