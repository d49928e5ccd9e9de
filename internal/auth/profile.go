package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"html"
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vaani/client/internal/model"
)

const (
	maxDisplayNameLen = 50
	maxBioLen         = 100
	maxEmojiLen       = 10
	defaultEmoji      = "✨"

	maxHandleAttempts = 10
)

var handlePattern = regexp.MustCompile(`^va-\d{4}$`)

// ValidHandle reports whether h looks like a public handle (va-NNNN)
func ValidHandle(h string) bool {
	return handlePattern.MatchString(h)
}

// HandleChecker reports whether a public handle is already in use.
// The client has no directory service of its own, so callers with access to
// one plug it in here.
type HandleChecker interface {
	HandleTaken(ctx context.Context, handle string) (bool, error)
}

// HandleCheckerFunc adapts a function to HandleChecker
type HandleCheckerFunc func(ctx context.Context, handle string) (bool, error)

func (fn HandleCheckerFunc) HandleTaken(ctx context.Context, handle string) (bool, error) {
	return fn(ctx, handle)
}

// noHandleChecker treats every handle as free
var noHandleChecker = HandleCheckerFunc(func(context.Context, string) (bool, error) {
	return false, nil
})

// ProfileInput is what the profile setup screen collects
type ProfileInput struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Emoji       string `json:"emoji"`
}

func (in ProfileInput) normalize() (ProfileInput, error) {
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Bio = strings.TrimSpace(in.Bio)
	in.Emoji = strings.TrimSpace(in.Emoji)

	n := utf8.RuneCountInString(in.DisplayName)
	if n == 0 || n > maxDisplayNameLen {
		return in, fmt.Errorf("display name must be 1-%d characters: %w", maxDisplayNameLen, model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Bio) > maxBioLen {
		return in, fmt.Errorf("bio must be at most %d characters: %w", maxBioLen, model.ErrInvalidInput)
	}
	if in.Emoji == "" {
		in.Emoji = defaultEmoji
	}
	if utf8.RuneCountInString(in.Emoji) > maxEmojiLen {
		return in, fmt.Errorf("avatar emoji is too long: %w", model.ErrInvalidInput)
	}
	return in, nil
}

// validProfile checks a profile restored from session storage
func validProfile(p model.Profile, ownerID string) bool {
	n := utf8.RuneCountInString(p.DisplayName)
	return p.OwnerID == ownerID &&
		n > 0 && n <= maxDisplayNameLen &&
		utf8.RuneCountInString(p.Bio) <= maxBioLen &&
		ValidHandle(p.PublicHandle)
}

// generateHandle picks a random va-NNNN handle, retrying while checker reports it taken
func generateHandle(ctx context.Context, checker HandleChecker) (string, error) {
	for i := 0; i < maxHandleAttempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(9000))
		if err != nil {
			return "", fmt.Errorf("failed to generate handle: %w", err)
		}
		handle := fmt.Sprintf("va-%d", 1000+n.Int64())
		taken, err := checker.HandleTaken(ctx, handle)
		if err != nil {
			return "", fmt.Errorf("handle check: %w", err)
		}
		if !taken {
			return handle, nil
		}
	}
	return "", fmt.Errorf("no free public handle after %d attempts", maxHandleAttempts)
}

// AvatarFromEmoji renders an emoji on the brand background as an SVG data URI
func AvatarFromEmoji(emoji string) string {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="200">` +
		`<rect width="200" height="200" fill="#9D7CFF"/>` +
		`<text x="50%" y="55%" font-size="80" text-anchor="middle" dominant-baseline="middle" fill="white">` +
		html.EscapeString(emoji) +
		`</text></svg>`
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}
