package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	upstream := &Upstream{Service: "storage", Code: "NoSuchBucket", Message: "The specified bucket does not exist", Status: http.StatusBadRequest}

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", Invalid("empty file"), http.StatusBadRequest, "empty file"},
		{"policy", &Policy{Message: "unsupported bucket: secret"}, http.StatusBadRequest, "unsupported bucket: secret"},
		{"upstream", upstream, http.StatusBadRequest, "storage error NoSuchBucket: The specified bucket does not exist"},
		{"wrapped upstream", fmt.Errorf("upload failed: %w", upstream.WithStatus(http.StatusInternalServerError)), http.StatusInternalServerError, "upload failed: storage error NoSuchBucket: The specified bucket does not exist"},
		{"upstream without status", &Upstream{Service: "optimizer", Message: "boom"}, http.StatusBadGateway, "optimizer error: boom"},
		{"not found", fmt.Errorf("get asset: %w", ErrNotFound), http.StatusNotFound, "get asset: not found"},
		{"internal", errors.New("connection reset"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Status(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, msg)
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "validation", Kind(Invalid("x")))
	assert.Equal(t, "policy", Kind(&Policy{Message: "x"}))
	assert.Equal(t, "upstream", Kind(fmt.Errorf("wrap: %w", &Upstream{Service: "storage"})))
	assert.Equal(t, "not_found", Kind(ErrNotFound))
	assert.Equal(t, "internal", Kind(errors.New("x")))
	assert.Equal(t, "", Kind(nil))
}

func TestUpstreamUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &Upstream{Service: "optimizer", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "optimizer error: dial tcp: refused", err.Error())
}
