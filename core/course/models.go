package course

import "github.com/trezcool/elimu/core"

// DefaultPassScore is the pass score of a freshly authored quiz.
const DefaultPassScore = 50

type (
	// Module is a top-level content grouping ("month") with its own pool of bulk access codes.
	Module struct {
		ID        int          `json:"id" validate:"gt=0"`
		Title     string       `json:"title"`
		Lectures  []Lecture    `json:"lectures" validate:"dive"`
		BulkCodes []AccessCode `json:"bulkCodes" validate:"dive"`
	}

	Lecture struct {
		ID        int     `json:"id" validate:"gt=0"`
		Title     string  `json:"title"`
		Thumbnail string  `json:"thumbnail"`
		PDF       string  `json:"pdf"`
		Videos    []Video `json:"videos" validate:"min=1,dive"`
		Quiz      *Quiz   `json:"quiz,omitempty"`
		// StudentCodes is the legacy per-student override: userID -> code.
		StudentCodes map[int]string `json:"studentCodes"`
	}

	Video struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
		URL   string `json:"url" validate:"required"`
	}

	AccessCode struct {
		Code   string `json:"code" validate:"accesscode"`
		Used   bool   `json:"used"`
		UsedBy int    `json:"usedBy"` // 0 when unused
	}

	Quiz struct {
		PassScore int        `json:"passScore" validate:"min=0,max=100"`
		Questions []Question `json:"questions" validate:"dive"`
	}

	Question struct {
		Q       string   `json:"q" validate:"notblank"`
		A       []string `json:"a" validate:"min=1"`
		Correct int      `json:"correct" validate:"min=0"`
		Image   string   `json:"image,omitempty"`
		Passage string   `json:"passage,omitempty"`
	}
)

// HasQuestions reports whether the quiz gates anything.
func (q *Quiz) HasQuestions() bool {
	return q != nil && len(q.Questions) > 0
}

// Clean normalizes a loaded record in place.
func (m *Module) Clean() {
	if m.Lectures == nil {
		m.Lectures = []Lecture{}
	}
	if m.BulkCodes == nil {
		m.BulkCodes = []AccessCode{}
	}
	for i := range m.Lectures {
		if m.Lectures[i].StudentCodes == nil {
			m.Lectures[i].StudentCodes = make(map[int]string)
		}
		if m.Lectures[i].Videos == nil {
			m.Lectures[i].Videos = []Video{}
		}
	}
}

func (m *Module) lectureIndex(lectureID int) int {
	for i, lec := range m.Lectures {
		if lec.ID == lectureID {
			return i
		}
	}
	return -1
}

// Lecture returns the lecture with the given ID.
func (m *Module) Lecture(lectureID int) (Lecture, bool) {
	if i := m.lectureIndex(lectureID); i >= 0 {
		return m.Lectures[i], true
	}
	return Lecture{}, false
}

type (
	NewModule struct {
		Title string `json:"title" validate:"notblank"`
	}

	VideoInput struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}

	// LectureInput creates a lecture (ID == 0) or edits an existing one.
	LectureInput struct {
		ID        int          `json:"-"`
		Title     string       `json:"title" validate:"notblank"`
		Thumbnail string       `json:"thumbnail"`
		PDF       string       `json:"pdf"`
		Videos    []VideoInput `json:"videos"`
	}

	QuestionInput struct {
		Q       string   `json:"q"`
		A       []string `json:"a"`
		Correct int      `json:"correct"`
		Image   string   `json:"image"`
		Passage string   `json:"passage"`
	}

	QuizInput struct {
		PassScore int             `json:"passScore" validate:"min=0,max=100"`
		Questions []QuestionInput `json:"questions"`
	}
)

// cleanVideos drops parts without URL.
func (li *LectureInput) cleanVideos() []VideoInput {
	videos := make([]VideoInput, 0, len(li.Videos))
	for _, v := range li.Videos {
		v.Title = core.CleanString(v.Title)
		v.URL = core.CleanString(v.URL)
		if v.URL != "" {
			videos = append(videos, v)
		}
	}
	return videos
}

// cleanQuestions drops questions without text or options & trims options.
// Blank options are dropped too; the answer key follows its option to the new index,
// or becomes -1 when it pointed at a blank or missing option.
func (qi *QuizInput) cleanQuestions() []Question {
	questions := make([]Question, 0, len(qi.Questions))
	for _, q := range qi.Questions {
		text := core.CleanString(q.Q)
		opts := make([]string, 0, len(q.A))
		correct := -1
		for i, a := range q.A {
			if a = core.CleanString(a); a != "" {
				if i == q.Correct {
					correct = len(opts)
				}
				opts = append(opts, a)
			}
		}
		if text == "" || len(opts) == 0 {
			continue
		}
		questions = append(questions, Question{
			Q:       text,
			A:       opts,
			Correct: correct,
			Image:   core.CleanString(q.Image),
			Passage: core.CleanString(q.Passage),
		})
	}
	return questions
}
