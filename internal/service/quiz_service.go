package service

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/repository"
	"classroom_backend/internal/util"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// QuizService 测验引擎：出题（整卷原子落库）、读取（嵌套重建）、自动判分。
// 多步写全部走单事务，任何一步失败整体回滚，外部永远看不到半成品。
type QuizService struct {
	QuizRepo       *repository.QuizRepository
	SubmissionRepo *repository.SubmissionRepository
	Authz          AuthorizationGate
	Cache          *QuizCache
	DB             *gorm.DB

	strictSingleCorrect atomic.Bool
}

func NewQuizService(quizRepo *repository.QuizRepository, subRepo *repository.SubmissionRepository, authz AuthorizationGate, cache *QuizCache, db *gorm.DB, strictSingleCorrect bool) *QuizService {
	s := &QuizService{
		QuizRepo:       quizRepo,
		SubmissionRepo: subRepo,
		Authz:          authz,
		Cache:          cache,
		DB:             db,
	}
	s.strictSingleCorrect.Store(strictSingleCorrect)
	return s
}

// SetStrictSingleCorrect 配置热更新入口
func (s *QuizService) SetStrictSingleCorrect(v bool) {
	s.strictSingleCorrect.Store(v)
}

type CreateOptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type CreateQuestionRequest struct {
	Text    string                `json:"text" binding:"required"`
	Options []CreateOptionRequest `json:"options" binding:"required,min=1"`
}

type CreateQuizRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	DueAt       *time.Time              `json:"dueAt"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"required,min=1"`
}

type QuestionDetail struct {
	model.QuizQuestion
	Options []model.QuizOption `json:"options"`
}

type QuizDetail struct {
	model.Quiz
	Questions []QuestionDetail `json:"questions"`
}

type AnswerRequest struct {
	QuestionID       uint  `json:"questionId" binding:"required"`
	SelectedOptionID *uint `json:"selectedOptionId"` // null = 未作答
}

type SubmitQuizRequest struct {
	Answers []AnswerRequest `json:"answers" binding:"required,min=1"`
}

type SubmissionDetail struct {
	model.QuizSubmission
	Answers []model.QuizAnswer `json:"answers"`
}

func (s *QuizService) validateCreate(req CreateQuizRequest) error {
	if req.Title == "" {
		return util.Validationf("title required")
	}
	if len(req.Questions) == 0 {
		return util.Validationf("questions required")
	}
	strict := s.strictSingleCorrect.Load()
	for i, q := range req.Questions {
		if q.Text == "" {
			return util.Validationf("questions[%d]: text required", i)
		}
		if len(q.Options) == 0 {
			return util.Validationf("questions[%d]: options required", i)
		}
		correctCount := 0
		for j, opt := range q.Options {
			if opt.Text == "" {
				return util.Validationf("questions[%d].options[%d]: text required", i, j)
			}
			if opt.IsCorrect {
				correctCount++
			}
		}
		if strict && correctCount > 1 {
			return util.Validationf("questions[%d]: only one option may be marked correct", i)
		}
	}
	return nil
}

// CreateQuiz 整卷创建：测验 → 题目（按输入顺序定 position）→ 选项，单事务。
// 校验失败不触库；事务内任何一步失败全部回滚。
func (s *QuizService) CreateQuiz(creatorID, classID uint, req CreateQuizRequest) (*QuizDetail, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}
	if err := s.Authz.CanAuthorQuiz(creatorID, classID); err != nil {
		return nil, err
	}

	var quizID uint
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		quiz := &model.Quiz{
			ClassID:     classID,
			Title:       req.Title,
			Description: req.Description,
			DueAt:       req.DueAt,
			CreatedBy:   creatorID,
		}
		if err := tx.Create(quiz).Error; err != nil {
			return err
		}

		for i, qReq := range req.Questions {
			question := &model.QuizQuestion{
				QuizID:   quiz.ID,
				Text:     qReq.Text,
				Position: i + 1,
			}
			if err := tx.Create(question).Error; err != nil {
				return err
			}

			for j, optReq := range qReq.Options {
				option := &model.QuizOption{
					QuestionID: question.ID,
					Text:       optReq.Text,
					Position:   j + 1,
					IsCorrect:  optReq.IsCorrect,
				}
				if err := tx.Create(option).Error; err != nil {
					return err
				}
			}
		}

		quizID = quiz.ID
		return nil
	})
	if err != nil {
		return nil, util.Storagef("create quiz", err)
	}

	return s.GetQuiz(quizID)
}

// GetQuiz 重建嵌套结构：测验 → 按 position 排序的题目 → 按 position 排序的选项
func (s *QuizService) GetQuiz(quizID uint) (*QuizDetail, error) {
	if detail, ok := s.Cache.Get(quizID); ok {
		return detail, nil
	}

	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}

	questions, err := s.QuizRepo.ListQuestions(quizID)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]uint, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}
	options, err := s.QuizRepo.ListOptions(questionIDs)
	if err != nil {
		return nil, err
	}

	optionsByQuestion := make(map[uint][]model.QuizOption, len(questions))
	for _, opt := range options {
		optionsByQuestion[opt.QuestionID] = append(optionsByQuestion[opt.QuestionID], opt)
	}

	detail := &QuizDetail{Quiz: *quiz, Questions: make([]QuestionDetail, len(questions))}
	for i, q := range questions {
		detail.Questions[i] = QuestionDetail{
			QuizQuestion: q,
			Options:      optionsByQuestion[q.ID],
		}
	}

	s.Cache.Set(detail)
	return detail, nil
}

func (s *QuizService) ListQuizzes(classID uint) ([]model.Quiz, error) {
	return s.QuizRepo.ListByClass(classID)
}

// SubmitQuiz 判分提交：提交行 → 答案行 → 总分更新，单事务。
// 不查重，同一 (quiz, student) 重复调用会产生多行（沿用现有产品语义）。
func (s *QuizService) SubmitQuiz(studentID, quizID uint, req SubmitQuizRequest) (*SubmissionDetail, error) {
	if len(req.Answers) == 0 {
		return nil, util.Validationf("answers required")
	}
	for i, a := range req.Answers {
		if a.QuestionID == 0 {
			return nil, util.Validationf("answers[%d]: questionId required", i)
		}
	}

	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.Authz.CanTakeQuiz(studentID, quiz); err != nil {
		return nil, err
	}

	// 作答只能引用本测验的题目，入库前校验
	quizQuestions, err := s.QuizRepo.ListQuestions(quizID)
	if err != nil {
		return nil, err
	}
	known := make(map[uint]bool, len(quizQuestions))
	for _, q := range quizQuestions {
		known[q.ID] = true
	}
	questionIDs := make([]uint, 0, len(req.Answers))
	seen := make(map[uint]bool, len(req.Answers))
	for i, a := range req.Answers {
		if !known[a.QuestionID] {
			return nil, util.Validationf("answers[%d]: question %d does not belong to quiz %d", i, a.QuestionID, quizID)
		}
		if !seen[a.QuestionID] {
			seen[a.QuestionID] = true
			questionIDs = append(questionIDs, a.QuestionID)
		}
	}

	var submission model.QuizSubmission
	var answers []model.QuizAnswer
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		submission = model.QuizSubmission{
			QuizID:      quiz.ID,
			StudentID:   studentID,
			SubmittedAt: time.Now(),
			Score:       0,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return err
		}

		// 事务内读权威选项，组每题的正确选项映射。
		// 同题有多个 is_correct 时后扫到的生效，沿用现网行为。
		var options []model.QuizOption
		if err := tx.Where("question_id IN ?", questionIDs).Find(&options).Error; err != nil {
			return err
		}
		correct := make(map[uint]uint, len(questionIDs))
		for _, opt := range options {
			if opt.IsCorrect {
				correct[opt.QuestionID] = opt.ID
			}
		}

		score := 0
		answers = make([]model.QuizAnswer, 0, len(req.Answers))
		for _, a := range req.Answers {
			correctID, hasCorrect := correct[a.QuestionID]
			isCorrect := hasCorrect && a.SelectedOptionID != nil && *a.SelectedOptionID == correctID

			answer := model.QuizAnswer{
				SubmissionID:     submission.ID,
				QuestionID:       a.QuestionID,
				SelectedOptionID: a.SelectedOptionID,
				IsCorrect:        isCorrect,
			}
			if err := tx.Create(&answer).Error; err != nil {
				return err
			}
			if isCorrect {
				score++
			}
			answers = append(answers, answer)
		}

		if err := tx.Model(&submission).Update("score", score).Error; err != nil {
			return err
		}
		submission.Score = score
		return nil
	})
	if err != nil {
		return nil, util.Storagef("submit quiz", err)
	}

	return &SubmissionDetail{QuizSubmission: submission, Answers: answers}, nil
}

// GetSubmission 返回最近一次提交及其答案；没有提交过时返回 (nil, nil)
func (s *QuizService) GetSubmission(quizID, studentID uint) (*SubmissionDetail, error) {
	submission, err := s.SubmissionRepo.FindLatest(quizID, studentID)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, nil
	}

	answers, err := s.SubmissionRepo.ListAnswers(submission.ID)
	if err != nil {
		return nil, err
	}
	return &SubmissionDetail{QuizSubmission: *submission, Answers: answers}, nil
}

func (s *QuizService) ListSubmissions(callerID, quizID uint) ([]repository.SubmissionListRow, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, err
	}
	if err := s.Authz.CanGradeQuiz(callerID, quiz); err != nil {
		return nil, err
	}
	return s.SubmissionRepo.ListForQuiz(quizID)
}

func (s *QuizService) DeleteQuiz(callerID, quizID uint) error {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return err
	}
	if err := s.Authz.CanDeleteQuiz(callerID, quiz); err != nil {
		return err
	}
	if err := s.QuizRepo.DeleteCascade(quizID); err != nil {
		return err
	}
	s.Cache.Invalidate(quizID)
	return nil
}
