package progression

import (
	"regexp"
	"strings"

	"github.com/trezcool/elimu/core/course"
)

var (
	youtubeRegex = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/|youtube\.com/shorts/|youtube\.com/live/)([^"&?/\s]{11})`)
	driveRegexes = []*regexp.Regexp{
		regexp.MustCompile(`/d/([a-zA-Z0-9_-]{25,})/`),
		regexp.MustCompile(`id=([a-zA-Z0-9_-]{25,})`),
	}
)

type (
	VideoContent struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		URL   string `json:"url"`
		Embed string `json:"embed"`
		// Live parts are streamed sessions rather than recordings.
		Live bool `json:"live"`
	}

	// LectureContent is what a student gets to watch. The quiz & its answer key are left out.
	LectureContent struct {
		ModuleID  int            `json:"moduleId"`
		ID        int            `json:"id"`
		Title     string         `json:"title"`
		Thumbnail string         `json:"thumbnail"`
		PDF       string         `json:"pdf"`
		Videos    []VideoContent `json:"videos"`
		HasQuiz   bool           `json:"hasQuiz"`
		Passed    bool           `json:"passed"`
	}
)

func newLectureContent(moduleID int, lec course.Lecture, passed bool) LectureContent {
	lc := LectureContent{
		ModuleID:  moduleID,
		ID:        lec.ID,
		Title:     lec.Title,
		Thumbnail: lec.Thumbnail,
		PDF:       lec.PDF,
		Videos:    make([]VideoContent, 0, len(lec.Videos)),
		HasQuiz:   lec.Quiz.HasQuestions(),
		Passed:    passed,
	}
	for _, v := range lec.Videos {
		lc.Videos = append(lc.Videos, VideoContent{
			ID:    v.ID,
			Title: v.Title,
			URL:   v.URL,
			Embed: EmbedURL(v.URL),
			Live:  strings.Contains(strings.ToLower(v.Title), "live"),
		})
	}
	return lc
}

// EmbedURL turns youtube & google drive links into their embeddable player URL.
// Any other URL is returned trimmed.
func EmbedURL(url string) string {
	url = strings.TrimSpace(url)
	if m := youtubeRegex.FindStringSubmatch(url); m != nil {
		return "https://www.youtube-nocookie.com/embed/" + m[1] + "?rel=0&modestbranding=1&enablejsapi=1"
	}
	if strings.Contains(url, "drive.google.com") {
		for _, re := range driveRegexes {
			if m := re.FindStringSubmatch(url); m != nil {
				return "https://drive.google.com/file/d/" + m[1] + "/preview"
			}
		}
	}
	return url
}
