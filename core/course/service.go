package course

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrModuleNotFound  = errors.New("module not found")
	ErrLectureNotFound = errors.New("lecture not found")
	ErrNoVideos        = errors.New("a lecture needs at least one video")
)

type (
	// Mutation is applied atomically to a stored module. Returning an error aborts it.
	Mutation func(m *Module, seq *Sequence) error

	Repository interface {
		QueryAllModules(ctx context.Context) ([]Module, error)
		GetModuleByID(ctx context.Context, id int) (Module, error)
		// CreateModule assigns the next module ID.
		CreateModule(ctx context.Context, mod Module) (Module, error)
		UpdateModule(ctx context.Context, id int, fn Mutation) (Module, error)
		DeleteModule(ctx context.Context, id int) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
		logger   core.Logger
	}
)

// Sequence hands out IDs that are unique across all modules.
type Sequence struct {
	lastLecture int
	lastVideo   int
}

// NewSequence starts after the highest lecture & video IDs found in modules.
func NewSequence(modules []Module) *Sequence {
	seq := new(Sequence)
	for _, m := range modules {
		for _, lec := range m.Lectures {
			if lec.ID > seq.lastLecture {
				seq.lastLecture = lec.ID
			}
			for _, v := range lec.Videos {
				if v.ID > seq.lastVideo {
					seq.lastVideo = v.ID
				}
			}
		}
	}
	return seq
}

func (seq *Sequence) NextLectureID() int {
	seq.lastLecture++
	return seq.lastLecture
}

func (seq *Sequence) NextVideoID() int {
	seq.lastVideo++
	return seq.lastVideo
}

func NewService(repo Repository, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validate,
		logger:   logger,
	}
}

func (svc *Service) QueryAll(ctx context.Context) ([]Module, error) {
	return svc.repo.QueryAllModules(ctx)
}

func (svc *Service) GetModule(ctx context.Context, id int) (Module, error) {
	return svc.repo.GetModuleByID(ctx, id)
}

// FindLecture returns a module along with one of its lectures.
func (svc *Service) FindLecture(ctx context.Context, moduleID, lectureID int) (Module, Lecture, error) {
	mod, err := svc.repo.GetModuleByID(ctx, moduleID)
	if err != nil {
		return Module{}, Lecture{}, err
	}
	lec, ok := mod.Lecture(lectureID)
	if !ok {
		return Module{}, Lecture{}, ErrLectureNotFound
	}
	return mod, lec, nil
}

func (svc *Service) CreateModule(ctx context.Context, nm NewModule) (Module, error) {
	nm.Title = core.CleanString(nm.Title)
	if err := svc.validate.Struct(nm); err != nil {
		return Module{}, err
	}
	mod, err := svc.repo.CreateModule(ctx, Module{
		Title:     nm.Title,
		Lectures:  []Lecture{},
		BulkCodes: []AccessCode{},
	})
	if err != nil {
		return Module{}, pkgerrors.Wrap(err, "creating module")
	}
	return mod, nil
}

func (svc *Service) RenameModule(ctx context.Context, id int, nm NewModule) (Module, error) {
	nm.Title = core.CleanString(nm.Title)
	if err := svc.validate.Struct(nm); err != nil {
		return Module{}, err
	}
	return svc.repo.UpdateModule(ctx, id, func(m *Module, _ *Sequence) error {
		m.Title = nm.Title
		return nil
	})
}

// DeleteModule removes a module. Users keep dangling references to it.
func (svc *Service) DeleteModule(ctx context.Context, id int) error {
	return svc.repo.DeleteModule(ctx, id)
}

// SaveLecture creates (li.ID == 0) or edits a lecture.
// Editing keeps the lecture's quiz & legacy student codes, and the IDs of videos whose URL is unchanged.
func (svc *Service) SaveLecture(ctx context.Context, moduleID int, li LectureInput) (Lecture, error) {
	li.Title = core.CleanString(li.Title)
	li.Thumbnail = core.CleanString(li.Thumbnail)
	li.PDF = core.CleanString(li.PDF)
	if err := svc.validate.Struct(li); err != nil {
		return Lecture{}, err
	}
	videos := li.cleanVideos()
	if len(videos) == 0 {
		return Lecture{}, core.NewValidationError(ErrNoVideos, core.FieldError{Field: "videos", Error: ErrNoVideos.Error()})
	}

	var saved Lecture
	_, err := svc.repo.UpdateModule(ctx, moduleID, func(m *Module, seq *Sequence) error {
		lec := Lecture{
			ID:           li.ID,
			Title:        li.Title,
			Thumbnail:    li.Thumbnail,
			PDF:          li.PDF,
			Quiz:         &Quiz{PassScore: DefaultPassScore, Questions: []Question{}},
			StudentCodes: make(map[int]string),
		}
		idx := -1
		// url -> IDs of the edited lecture's videos, reused in order
		known := make(map[string][]int)
		if li.ID != 0 {
			if idx = m.lectureIndex(li.ID); idx < 0 {
				return ErrLectureNotFound
			}
			lec.Quiz = m.Lectures[idx].Quiz
			if codes := m.Lectures[idx].StudentCodes; codes != nil {
				lec.StudentCodes = codes
			}
			for _, v := range m.Lectures[idx].Videos {
				known[v.URL] = append(known[v.URL], v.ID)
			}
		} else {
			lec.ID = seq.NextLectureID()
		}
		for _, v := range videos {
			var id int
			if ids := known[v.URL]; len(ids) > 0 {
				id, known[v.URL] = ids[0], ids[1:]
			} else {
				id = seq.NextVideoID()
			}
			lec.Videos = append(lec.Videos, Video{ID: id, Title: v.Title, URL: v.URL})
		}

		if idx >= 0 {
			m.Lectures[idx] = lec
		} else {
			m.Lectures = append(m.Lectures, lec)
		}
		saved = lec
		return nil
	})
	if err != nil {
		return Lecture{}, err
	}
	return saved, nil
}

// DeleteLecture removes a lecture. Users keep dangling progress for it.
func (svc *Service) DeleteLecture(ctx context.Context, moduleID, lectureID int) error {
	_, err := svc.repo.UpdateModule(ctx, moduleID, func(m *Module, _ *Sequence) error {
		idx := m.lectureIndex(lectureID)
		if idx < 0 {
			return ErrLectureNotFound
		}
		m.Lectures = append(m.Lectures[:idx], m.Lectures[idx+1:]...)
		return nil
	})
	return err
}

// SaveQuiz replaces a lecture's quiz. Questions without text or options are skipped.
func (svc *Service) SaveQuiz(ctx context.Context, moduleID, lectureID int, qi QuizInput) (Quiz, error) {
	if err := svc.validate.Struct(qi); err != nil {
		return Quiz{}, err
	}
	qz := Quiz{PassScore: qi.PassScore, Questions: qi.cleanQuestions()}
	if err := svc.validate.Struct(qz); err != nil {
		return Quiz{}, err
	}

	_, err := svc.repo.UpdateModule(ctx, moduleID, func(m *Module, _ *Sequence) error {
		idx := m.lectureIndex(lectureID)
		if idx < 0 {
			return ErrLectureNotFound
		}
		m.Lectures[idx].Quiz = &qz
		return nil
	})
	if err != nil {
		return Quiz{}, err
	}
	return qz, nil
}

// SetStudentCode maintains the legacy per-student lecture code. An empty code removes it.
func (svc *Service) SetStudentCode(ctx context.Context, moduleID, lectureID, userID int, code string) error {
	code = core.CleanString(code)
	_, err := svc.repo.UpdateModule(ctx, moduleID, func(m *Module, _ *Sequence) error {
		idx := m.lectureIndex(lectureID)
		if idx < 0 {
			return ErrLectureNotFound
		}
		lec := &m.Lectures[idx]
		if lec.StudentCodes == nil {
			lec.StudentCodes = make(map[int]string)
		}
		if code == "" {
			delete(lec.StudentCodes, userID)
		} else {
			lec.StudentCodes[userID] = code
		}
		return nil
	})
	return err
}
