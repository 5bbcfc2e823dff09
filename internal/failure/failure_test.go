package failure

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsKind(t *testing.T) {
	err := New(NoVideoStream, "validate", "/tmp/out.mp4", nil)
	wrapped := fmt.Errorf("job 3: %w", err)

	assert.True(t, errors.Is(wrapped, NoVideoStream))
	assert.False(t, errors.Is(wrapped, EncodeFailed))
	assert.Equal(t, NoVideoStream, KindOf(wrapped))
}

func TestErrorUnwrapsCause(t *testing.T) {
	err := New(IOFailure, "create encode dir", "/x", fs.ErrPermission)
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.Contains(t, err.Error(), `io: create encode dir "/x"`)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), "boom"},
		{"kind only", New(Interrupted, "", "", nil), "interrupted"},
		{"kind and op", New(EncodeFailed, "fallback encoder", "/a", errors.New("exit 1")), "encode: fallback encoder"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.err))
		})
	}
}
