package media

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"trivia-session-service/internal/domain"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// YouTubeResolver turns a YouTube link into the video id players embed.
type YouTubeResolver struct{}

func NewYouTubeResolver() *YouTubeResolver {
	return &YouTubeResolver{}
}

// Resolve accepts watch, short-link, embed and shorts URLs, or a bare video id.
func (YouTubeResolver) Resolve(_ context.Context, sourceURL string) (string, error) {
	raw := strings.TrimSpace(sourceURL)
	if raw == "" {
		return "", fmt.Errorf("%w: empty source url", domain.ErrMediaResolution)
	}
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: %q is not a url", domain.ErrMediaResolution, raw)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(u.Path)
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = firstSegment(strings.TrimPrefix(u.Path, "/embed"))
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = firstSegment(strings.TrimPrefix(u.Path, "/shorts"))
		}
	default:
		return "", fmt.Errorf("%w: unsupported host %q", domain.ErrMediaResolution, u.Hostname())
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", domain.ErrMediaResolution, raw)
	}
	return id, nil
}

func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}
