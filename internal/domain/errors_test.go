package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForCode(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{CodeInvalidParameter, KindInvalidMediaReference},
		{CodeNotFound, KindInvalidMediaReference},
		{CodeEmbedNotAllowed, KindPlaybackNotPermitted},
		{CodeEmbedNotAllowedAlias, KindPlaybackNotPermitted},
		{CodePlayerFailure, KindTransport},
		{999, KindTransport},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindForCode(tt.code), "code %d", tt.code)
	}
}

func TestPlaybackError_IsMatchesKindSentinel(t *testing.T) {
	err := NewPlaybackErrorFromCode(CodeEmbedNotAllowed, "t1")

	assert.ErrorIs(t, err, ErrPlaybackNotPermitted)
	assert.NotErrorIs(t, err, ErrTransport)
	assert.Equal(t, "Embedding not allowed", err.Message)

	wrapped := fmt.Errorf("load: %w", err)
	var perr *PlaybackError
	assert.True(t, errors.As(wrapped, &perr))
	assert.Equal(t, "t1", perr.TrackID)
}

func TestPlaybackError_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewPlaybackError(KindInitializationFailed, "t1", "create failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInitializationFailed)
	assert.Contains(t, err.Error(), "initialization_failed")
}
