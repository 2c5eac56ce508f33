// Package domain contains the core entities of the feed cache: items, feed
// pages and feed metadata.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ContentRating limits which items a parameterized feed may contain.
type ContentRating string

const (
	RatingG    ContentRating = "G"
	RatingPG   ContentRating = "PG"
	RatingPG13 ContentRating = "PG-13"
	RatingR    ContentRating = "R"
)

// URLValue returns the query-parameter form of the rating.
func (r ContentRating) URLValue() string {
	return strings.ToLower(string(r))
}

// ParseContentRating maps a response value back to a ContentRating.
// Unknown values default to RatingG, matching the server's most
// restrictive interpretation.
func ParseContentRating(v string) ContentRating {
	switch strings.ToUpper(v) {
	case string(RatingPG):
		return RatingPG
	case string(RatingPG13), "PG13":
		return RatingPG13
	case string(RatingR):
		return RatingR
	default:
		return RatingG
	}
}

// ProjectionType describes how a 360 item should be rendered.
type ProjectionType string

const (
	ProjectionNone        ProjectionType = ""
	ProjectionEquirect    ProjectionType = "equirectangular"
	ProjectionFisheye     ProjectionType = "fisheye"
	ProjectionSingleImage ProjectionType = "singleimage"
)

// ItemURLs groups the resolution and format variants served for one item.
// All fields may be empty; consumers pick the best available variant.
type ItemURLs struct {
	Poster         string `json:"poster_url,omitempty"`
	PNGPoster      string `json:"png_poster_url,omitempty"`
	MobilePoster   string `json:"mobile_poster_url,omitempty"`
	MiniPoster     string `json:"mini_poster_url,omitempty"`
	Thumb100Poster string `json:"thumb100_poster_url,omitempty"`
	MP4            string `json:"mp4_url,omitempty"`
	Mobile         string `json:"mobile_url,omitempty"`
	Mini           string `json:"mini_url,omitempty"`
	GIF            string `json:"gif_url,omitempty"`
	WebM           string `json:"webm_url,omitempty"`
	WebP           string `json:"webp_url,omitempty"`
	GIF100px       string `json:"gif100_url,omitempty"`
	Max1MBGIF      string `json:"max1mb_gif_url,omitempty"`
	Max2MBGIF      string `json:"max2mb_gif_url,omitempty"`
	Max5MBGIF      string `json:"max5mb_gif_url,omitempty"`
}

// Item is one cacheable content unit. ContentID is the stable global
// identity; re-inserting an existing ContentID updates the stored row in
// place.
type Item struct {
	ContentID   string   `json:"content_id"`
	Name        string   `json:"name"`
	Number      int64    `json:"number"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	URLs        ItemURLs `json:"urls"`
	MP4Size     int64    `json:"mp4_size,omitempty"`
	WebMSize    int64    `json:"webm_size,omitempty"`
	Owner       string   `json:"owner"`
	// ServerCreatedAt is assigned by the remote API; LocalCreatedAt is
	// stamped when the item first enters the local cache.
	ServerCreatedAt time.Time      `json:"server_created_at"`
	LocalCreatedAt  time.Time      `json:"local_created_at"`
	Views           int64          `json:"views"`
	Title           string         `json:"title,omitempty"`
	Description     string         `json:"description,omitempty"`
	Projection      ProjectionType `json:"projection,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	Deleted         bool           `json:"deleted,omitempty"`
	NSFW            bool           `json:"nsfw,omitempty"`
	Published       bool           `json:"published,omitempty"`
	HasTransparency bool           `json:"has_transparency,omitempty"`
	HasAudio        bool           `json:"has_audio,omitempty"`
	ContentRating   ContentRating  `json:"content_rating,omitempty"`
	NumFrames       int            `json:"num_frames,omitempty"`
	FrameRate       float64        `json:"frame_rate,omitempty"`
	AvgColor        string         `json:"avg_color,omitempty"`
}

// AspectRatio returns width/height, or 0 if the item has no dimensions.
func (i *Item) AspectRatio() float64 {
	if i.Height == 0 {
		return 0
	}
	return float64(i.Width) / float64(i.Height)
}

// LengthSeconds returns the playback length derived from frame data.
func (i *Item) LengthSeconds() float64 {
	if i.FrameRate == 0 {
		return 0
	}
	return float64(i.NumFrames) / i.FrameRate
}

// AvgColorInt parses the stored "#RRGGBB" average color. Returns 0 for
// missing or malformed values.
func (i *Item) AvgColorInt() int64 {
	hex := strings.TrimPrefix(i.AvgColor, "#")
	if len(hex) != 6 {
		return 0
	}
	v, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0
	}
	return v
}

func (i *Item) String() string {
	return fmt.Sprintf("Item{%s by %s}", i.ContentID, i.Owner)
}
