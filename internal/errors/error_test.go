package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "network", err: &NetworkError{Op: "POST /chunks", StatusCode: 503}, want: true},
		{name: "integrity", err: &IntegrityError{}, want: true},
		{name: "plain", err: errors.New("connection reset"), want: true},
		{name: "encoding", err: LengthError("address", 32, 3), want: false},
		{name: "wrapped encoding", err: fmt.Errorf("chunk 4: %w", LengthError("address", 32, 3)), want: false},
		{name: "bucket full", err: fmt.Errorf("bucket 12: %w", ErrBucketFull), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
