package errortracking

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryProvider reports to Sentry via github.com/getsentry/sentry-go.
type SentryProvider struct {
	hub *sentry.Hub
}

// SentryConfig configures a SentryProvider.
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	Debug            bool
	SampleRate       float64
	TracesSampleRate float64
}

// NewSentryProvider initializes the global Sentry client and returns a
// Provider bound to its current hub.
func NewSentryProvider(cfg SentryConfig) (*SentryProvider, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		SampleRate:       cfg.SampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("errortracking: failed to initialize sentry: %w", err)
	}
	return &SentryProvider{hub: sentry.CurrentHub()}, nil
}

func (s *SentryProvider) hubFor(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return s.hub
}

func (s *SentryProvider) CaptureError(ctx context.Context, err error, severity Severity, extra map[string]interface{}) {
	if err == nil {
		return
	}
	event := sentry.NewEvent()
	event.Level = convertSeverity(severity)
	event.Message = err.Error()
	event.Exception = []sentry.Exception{{
		Value:      err.Error(),
		Type:       fmt.Sprintf("%T", err),
		Stacktrace: sentry.ExtractStacktrace(err),
	}}
	if extra != nil {
		event.Extra = extra
	}
	s.hubFor(ctx).CaptureEvent(event)
}

func (s *SentryProvider) CaptureMessage(ctx context.Context, message string, severity Severity, extra map[string]interface{}) {
	if message == "" {
		return
	}
	event := sentry.NewEvent()
	event.Level = convertSeverity(severity)
	event.Message = message
	if extra != nil {
		event.Extra = extra
	}
	s.hubFor(ctx).CaptureEvent(event)
}

func (s *SentryProvider) CapturePanic(ctx context.Context, recovered interface{}, stackTrace []byte, extra map[string]interface{}) {
	if recovered == nil {
		return
	}
	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	event.Message = fmt.Sprintf("panic: %v", recovered)
	event.Exception = []sentry.Exception{{Value: fmt.Sprintf("%v", recovered), Type: "panic"}}
	if extra == nil {
		extra = map[string]interface{}{}
	}
	if stackTrace != nil {
		extra["stack_trace"] = string(stackTrace)
	}
	event.Extra = extra
	s.hubFor(ctx).CaptureEvent(event)
}

func (s *SentryProvider) Flush(timeoutSeconds int) bool {
	return sentry.Flush(time.Duration(timeoutSeconds) * time.Second)
}

func (s *SentryProvider) Close() error {
	sentry.Flush(2 * time.Second)
	return nil
}

func convertSeverity(severity Severity) sentry.Level {
	switch severity {
	case SeverityError:
		return sentry.LevelError
	case SeverityWarning:
		return sentry.LevelWarning
	case SeverityInfo:
		return sentry.LevelInfo
	case SeverityDebug:
		return sentry.LevelDebug
	default:
		return sentry.LevelError
	}
}
