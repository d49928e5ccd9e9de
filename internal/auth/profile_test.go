package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaani/client/internal/model"
)

func TestValidHandle(t *testing.T) {
	assert.True(t, ValidHandle("va-1234"))
	assert.False(t, ValidHandle("va-123"))
	assert.False(t, ValidHandle("va-12345"))
	assert.False(t, ValidHandle("VA-1234"))
	assert.False(t, ValidHandle("#GOPRO-882"))
}

func TestGenerateHandle_retriesOnConflict(t *testing.T) {
	calls := 0
	checker := HandleCheckerFunc(func(_ context.Context, handle string) (bool, error) {
		calls++
		return calls < 3, nil
	})

	handle, err := generateHandle(context.Background(), checker)
	require.NoError(t, err)
	assert.True(t, ValidHandle(handle))
	assert.Equal(t, 3, calls)
}

func TestGenerateHandle_fourDigitRange(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		handle, err := generateHandle(context.Background(), noHandleChecker)
		require.NoError(t, err)
		require.True(t, ValidHandle(handle), handle)
		assert.NotEqual(t, byte('0'), handle[3], "digits start at 1000")
		seen[handle] = true
	}
	assert.Greater(t, len(seen), 1, "handles are random")
}

func TestGenerateHandle_givesUp(t *testing.T) {
	always := HandleCheckerFunc(func(context.Context, string) (bool, error) { return true, nil })
	_, err := generateHandle(context.Background(), always)
	assert.Error(t, err)

	boom := errors.New("directory down")
	failing := HandleCheckerFunc(func(context.Context, string) (bool, error) { return false, boom })
	_, err = generateHandle(context.Background(), failing)
	assert.ErrorIs(t, err, boom)
}

func TestProfileInput_normalize(t *testing.T) {
	_, err := ProfileInput{DisplayName: strings.Repeat("a", 51)}.normalize()
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = ProfileInput{DisplayName: "Asha", Bio: strings.Repeat("b", 101)}.normalize()
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	// limits count characters, not bytes
	in, err := ProfileInput{DisplayName: strings.Repeat("आ", 50)}.normalize()
	require.NoError(t, err)
	assert.Equal(t, defaultEmoji, in.Emoji)
}

func TestAvatarFromEmoji(t *testing.T) {
	ref := AvatarFromEmoji("<🌸>")
	require.True(t, strings.HasPrefix(ref, "data:image/svg+xml;base64,"))

	svg, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, "data:image/svg+xml;base64,"))
	require.NoError(t, err)
	assert.Contains(t, string(svg), "&lt;🌸&gt;")
	assert.Contains(t, string(svg), "#9D7CFF")
}
