// Package media decides at publish time whether a signal URL should be
// rendered as an embedded video instead of a plain text entry.
package media

import (
	"net/url"
	"regexp"
	"strings"

	"SignalScanner/internal/domain"
)

var vimeoIDExpr = regexp.MustCompile(`^/(\d+)$`)

// DetectVideo inspects a URL and, when it matches a recognized
// video-hosting pattern, returns the media descriptor (embed URL plus
// thumbnail) to publish instead of a text entry.
func DetectVideo(rawURL string) (domain.MediaDescriptor, bool) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return domain.MediaDescriptor{}, false
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")

	switch host {
	case "youtube.com", "m.youtube.com":
		if id := youtubeID(parsed); id != "" {
			return youtubeDescriptor(id), true
		}
	case "youtu.be":
		if id := strings.Trim(parsed.Path, "/"); id != "" && !strings.Contains(id, "/") {
			return youtubeDescriptor(id), true
		}
	case "vimeo.com":
		if m := vimeoIDExpr.FindStringSubmatch(parsed.Path); m != nil {
			return domain.MediaDescriptor{
				Type:      "video",
				URL:       "https://player.vimeo.com/video/" + m[1],
				Thumbnail: "https://vumbnail.com/" + m[1] + ".jpg",
			}, true
		}
	}

	return domain.MediaDescriptor{}, false
}

func youtubeID(parsed *url.URL) string {
	switch {
	case parsed.Path == "/watch":
		return parsed.Query().Get("v")
	case strings.HasPrefix(parsed.Path, "/shorts/"):
		return strings.Trim(strings.TrimPrefix(parsed.Path, "/shorts/"), "/")
	case strings.HasPrefix(parsed.Path, "/embed/"):
		return strings.Trim(strings.TrimPrefix(parsed.Path, "/embed/"), "/")
	}
	return ""
}

func youtubeDescriptor(id string) domain.MediaDescriptor {
	return domain.MediaDescriptor{
		Type:      "video",
		URL:       "https://www.youtube.com/embed/" + id,
		Thumbnail: "https://img.youtube.com/vi/" + id + "/hqdefault.jpg",
	}
}
