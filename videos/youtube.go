package videos

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	ProviderYouTube  = "youtube"
	ProviderExternal = "external"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Normalized is a video url reduced to something a player can embed.
type Normalized struct {
	Provider string
	VideoID  string
	EmbedURL string
}

// Normalize recognises YouTube watch, short, embed, live and youtu.be links
// as well as bare 11-character ids. Any other http(s) url is external.
func Normalize(raw string) (Normalized, bool) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return youtube(raw), true
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Normalized{}, false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch host {
	case "youtu.be":
		id = segments[0]
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		switch {
		case segments[0] == "watch":
			id = u.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live" || segments[0] == "v"):
			id = segments[1]
		}
	}
	if videoIDPattern.MatchString(id) {
		return youtube(id), true
	}
	return Normalized{Provider: ProviderExternal, EmbedURL: raw}, true
}

func youtube(id string) Normalized {
	return Normalized{
		Provider: ProviderYouTube,
		VideoID:  id,
		EmbedURL: "https://www.youtube.com/embed/" + id,
	}
}
