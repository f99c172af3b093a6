package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/ntria/tax-assistant/internal/infrastructure/resilience"
)

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want resilience.ErrorClassification
	}{
		{"nil", nil, resilience.ErrorClassification{}},
		{"cancelled", context.Canceled, resilience.ErrorClassification{}},
		{"closed", nats.ErrConnectionClosed, resilience.ErrorClassification{RecordFailure: true}},
		{"draining", nats.ErrConnectionDraining, resilience.ErrorClassification{RecordFailure: true}},
		{"buffer full", nats.ErrReconnectBufExceeded, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"timeout", nats.ErrTimeout, resilience.ErrorClassification{Retryable: true, RecordFailure: true}},
		{"other", errors.New("boom"), resilience.ErrorClassification{RecordFailure: true}},
	}
	for _, tc := range cases {
		if got := classifyNATSError(tc.err); got != tc.want {
			t.Errorf("%s: classifyNATSError() = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}
