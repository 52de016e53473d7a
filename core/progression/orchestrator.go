package progression

import (
	"context"
	"errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/access"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/quiz"
	"github.com/trezcool/elimu/core/session"
	"github.com/trezcool/elimu/core/unlock"
	"github.com/trezcool/elimu/core/user"
)

var (
	// errors
	ErrGateNotQuiz  = errors.New("lecture is not waiting for a quiz")
	ErrNoAttempt    = errors.New("no quiz attempt in progress")
	ErrLectureGated = errors.New("lecture is not playable yet")
)

type (
	LectureView struct {
		ID        int    `json:"id"`
		Title     string `json:"title"`
		Thumbnail string `json:"thumbnail"`
		Videos    int    `json:"videos"`
		HasQuiz   bool   `json:"hasQuiz"`
		Passed    bool   `json:"passed"`
		Gate      Gate   `json:"gate"`
	}

	ModuleView struct {
		ID       int           `json:"id"`
		Title    string        `json:"title"`
		Unlocked bool          `json:"unlocked"`
		Lectures []LectureView `json:"lectures"`
	}

	Orchestrator struct {
		users   *user.Service
		courses *course.Service
		codes   *access.Engine
		quizzes *quiz.Engine
		logger  core.Logger
	}
)

func NewOrchestrator(
	users *user.Service,
	courses *course.Service,
	codes *access.Engine,
	quizzes *quiz.Engine,
	logger core.Logger,
) *Orchestrator {
	return &Orchestrator{
		users:   users,
		courses: courses,
		codes:   codes,
		quizzes: quizzes,
		logger:  logger,
	}
}

// reload refreshes the session's user from the store. sess must be locked.
func (o *Orchestrator) reload(ctx context.Context, sess *session.Session) error {
	usr, err := o.users.GetByID(ctx, sess.User.ID)
	if err != nil {
		return err
	}
	sess.User = usr
	return nil
}

// gateFor resolves the gate, letting a lecture opened with a student code through. sess must be locked.
func gateFor(sess *session.Session, moduleID int, lec course.Lecture) Gate {
	if sess.Granted[session.LectureRef{ModuleID: moduleID, LectureID: lec.ID}] {
		return Playable
	}
	return Resolve(sess.User, moduleID, lec)
}

// evaluate resolves the gate and tracks the lecture as pending until it becomes playable. sess must be locked.
func (o *Orchestrator) evaluate(ctx context.Context, sess *session.Session, moduleID, lectureID int) (course.Lecture, Gate, error) {
	if err := o.reload(ctx, sess); err != nil {
		return course.Lecture{}, Locked, err
	}
	_, lec, err := o.courses.FindLecture(ctx, moduleID, lectureID)
	if err != nil {
		return course.Lecture{}, Locked, err
	}

	gate := gateFor(sess, moduleID, lec)
	if gate == Playable {
		sess.Pending = nil
	} else {
		sess.Pending = &session.LectureRef{ModuleID: moduleID, LectureID: lectureID}
	}
	return lec, gate, nil
}

// ResolveGate tells which gate stands between the session's user and the lecture.
func (o *Orchestrator) ResolveGate(ctx context.Context, sess *session.Session, moduleID, lectureID int) (Gate, error) {
	sess.Lock()
	defer sess.Unlock()

	_, gate, err := o.evaluate(ctx, sess, moduleID, lectureID)
	return gate, err
}

// SubmitCode redeems a module code, then re-evaluates the lecture.
func (o *Orchestrator) SubmitCode(ctx context.Context, sess *session.Session, moduleID, lectureID int, code string) (Gate, error) {
	sess.Lock()
	defer sess.Unlock()

	// never spend a code on a lecture that does not exist
	if _, _, err := o.courses.FindLecture(ctx, moduleID, lectureID); err != nil {
		return Locked, err
	}
	if err := o.codes.Redeem(ctx, moduleID, code, sess.User.ID); err != nil {
		if err == access.ErrInvalidCode {
			return CodeRequired, err
		}
		return Locked, err
	}
	_, gate, err := o.evaluate(ctx, sess, moduleID, lectureID)
	return gate, err
}

// SubmitStudentCode checks the lecture's legacy per-student code. A match makes the lecture playable
// for the rest of the session; nothing is persisted.
func (o *Orchestrator) SubmitStudentCode(ctx context.Context, sess *session.Session, moduleID, lectureID int, code string) (Gate, error) {
	sess.Lock()
	defer sess.Unlock()

	lec, gate, err := o.evaluate(ctx, sess, moduleID, lectureID)
	if err != nil {
		return gate, err
	}
	if !access.RedeemStudentCode(lec, sess.User.ID, code) {
		return gate, access.ErrInvalidCode
	}
	if sess.Granted == nil {
		sess.Granted = make(map[session.LectureRef]bool)
	}
	sess.Granted[session.LectureRef{ModuleID: moduleID, LectureID: lectureID}] = true
	sess.Pending = nil
	return Playable, nil
}

// OpenLecture hands out the lecture's content once nothing gates it anymore.
func (o *Orchestrator) OpenLecture(ctx context.Context, sess *session.Session, moduleID, lectureID int) (LectureContent, error) {
	sess.Lock()
	defer sess.Unlock()

	lec, gate, err := o.evaluate(ctx, sess, moduleID, lectureID)
	if err != nil {
		return LectureContent{}, err
	}
	if gate != Playable {
		return LectureContent{}, ErrLectureGated
	}
	return newLectureContent(moduleID, lec, unlock.IsLecturePassed(sess.User, lec.ID)), nil
}

// StartQuiz opens a fresh attempt at the lecture's quiz, replacing any attempt in progress.
func (o *Orchestrator) StartQuiz(ctx context.Context, sess *session.Session, moduleID, lectureID int) (*quiz.Attempt, error) {
	sess.Lock()
	defer sess.Unlock()

	lec, gate, err := o.evaluate(ctx, sess, moduleID, lectureID)
	if err != nil {
		return nil, err
	}
	if gate != QuizRequired {
		return nil, ErrGateNotQuiz
	}
	att, err := quiz.NewAttempt(moduleID, lec)
	if err != nil {
		return nil, err
	}
	sess.Attempt = att
	return att, nil
}

// AnswerQuestion selects an option for question i of the attempt in progress.
func (o *Orchestrator) AnswerQuestion(sess *session.Session, i, opt int) (*quiz.Attempt, error) {
	sess.Lock()
	defer sess.Unlock()

	if sess.Attempt == nil {
		return nil, ErrNoAttempt
	}
	if err := sess.Attempt.Select(i, opt); err != nil {
		return nil, err
	}
	return sess.Attempt, nil
}

// SubmitQuiz scores the attempt in progress. A pass is recorded and the lecture re-evaluated;
// a failure resets the attempt for a retake and leaves the lecture waiting for the quiz.
func (o *Orchestrator) SubmitQuiz(ctx context.Context, sess *session.Session) (quiz.Result, Gate, error) {
	sess.Lock()
	defer sess.Unlock()

	att := sess.Attempt
	if att == nil {
		return quiz.Result{}, Locked, ErrNoAttempt
	}
	res, err := att.Score()
	if err != nil {
		return quiz.Result{}, QuizRequired, err
	}

	if !res.Passed {
		att.Reset()
		return res, QuizRequired, nil
	}

	if err = o.quizzes.RecordPass(ctx, sess.User.ID, att.LectureID); err != nil {
		return quiz.Result{}, QuizRequired, err
	}
	sess.Attempt = nil
	o.logger.Info("quiz passed", map[string]interface{}{"lecture": att.LectureID, "percentage": res.Percentage}, sess.User)

	_, gate, err := o.evaluate(ctx, sess, att.ModuleID, att.LectureID)
	return res, gate, err
}

// Score grades answers for a lecture's quiz without touching any state.
func (o *Orchestrator) Score(ctx context.Context, moduleID, lectureID int, answers []int) (quiz.Result, error) {
	_, lec, err := o.courses.FindLecture(ctx, moduleID, lectureID)
	if err != nil {
		return quiz.Result{}, err
	}
	if !unlock.HasQuiz(lec) {
		return quiz.Result{}, quiz.ErrNoQuiz
	}
	return quiz.Score(*lec.Quiz, answers)
}

// Overview lists every module & lecture with the gate the session's user faces.
func (o *Orchestrator) Overview(ctx context.Context, sess *session.Session) ([]ModuleView, error) {
	sess.Lock()
	defer sess.Unlock()

	if err := o.reload(ctx, sess); err != nil {
		return nil, err
	}
	modules, err := o.courses.QueryAll(ctx)
	if err != nil {
		return nil, err
	}

	usr := sess.User
	views := make([]ModuleView, 0, len(modules))
	for _, mod := range modules {
		mv := ModuleView{
			ID:       mod.ID,
			Title:    mod.Title,
			Unlocked: unlock.IsModuleUnlocked(usr, mod.ID),
			Lectures: make([]LectureView, 0, len(mod.Lectures)),
		}
		for _, lec := range mod.Lectures {
			mv.Lectures = append(mv.Lectures, LectureView{
				ID:        lec.ID,
				Title:     lec.Title,
				Thumbnail: lec.Thumbnail,
				Videos:    len(lec.Videos),
				HasQuiz:   unlock.HasQuiz(lec),
				Passed:    unlock.IsLecturePassed(usr, lec.ID),
				Gate:      gateFor(sess, mod.ID, lec),
			})
		}
		views = append(views, mv)
	}
	return views, nil
}
