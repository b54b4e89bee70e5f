package service

import (
	"errors"
	"testing"
	"time"

	"classroom_backend/internal/model"
	"classroom_backend/internal/repository"
	"classroom_backend/internal/util"
	"classroom_backend/pkg/database"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	db      *gorm.DB
	svc     *QuizService
	teacher model.User
	student model.User
	class   model.Class
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// 内存库按连接隔离，多连接会看到不同的库
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	f := &fixture{db: db}

	f.teacher = model.User{Username: "teacher1", FullName: "Teacher One", Email: "teacher1@example.com", Password: "secret", Role: model.Teacher}
	if err := db.Create(&f.teacher).Error; err != nil {
		t.Fatalf("seed teacher: %v", err)
	}
	f.student = model.User{Username: "student1", FullName: "Student One", Email: "student1@example.com", Password: "secret", Role: model.Student}
	if err := db.Create(&f.student).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	f.class = model.Class{Name: "Algebra", Description: "Algebra 101", TeacherID: f.teacher.ID}
	if err := db.Create(&f.class).Error; err != nil {
		t.Fatalf("seed class: %v", err)
	}
	if err := db.Create(&model.Enrollment{ClassID: f.class.ID, StudentID: f.student.ID}).Error; err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	authz := NewAuthzService(repository.NewUserRepository(db), repository.NewClassRepository(db))
	f.svc = NewQuizService(
		repository.NewQuizRepository(db),
		repository.NewSubmissionRepository(db),
		authz,
		NewQuizCache(nil, 0),
		db,
		false,
	)
	return f
}

// 固定出题：Q1 选项 [A(正确), B]，Q2 选项 [C, D(正确)]
func twoQuestionQuiz() CreateQuizRequest {
	return CreateQuizRequest{
		Title:       "Chapter 1 Quiz",
		Description: "Linear equations",
		Questions: []CreateQuestionRequest{
			{
				Text: "What is 2x when x=1?",
				Options: []CreateOptionRequest{
					{Text: "2", IsCorrect: true},
					{Text: "4"},
				},
			},
			{
				Text: "What is x+x?",
				Options: []CreateOptionRequest{
					{Text: "x"},
					{Text: "2x", IsCorrect: true},
				},
			},
		},
	}
}

func (f *fixture) mustCreateQuiz(t *testing.T, req CreateQuizRequest) *QuizDetail {
	t.Helper()
	detail, err := f.svc.CreateQuiz(f.teacher.ID, f.class.ID, req)
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	return detail
}

func TestCreateQuizRoundTrip(t *testing.T) {
	f := newFixture(t)
	req := twoQuestionQuiz()

	created := f.mustCreateQuiz(t, req)

	reread, err := f.svc.GetQuiz(created.ID)
	if err != nil {
		t.Fatalf("re-read quiz: %v", err)
	}

	if reread.Title != req.Title || reread.ClassID != f.class.ID || reread.CreatedBy != f.teacher.ID {
		t.Errorf("quiz fields mismatch: %+v", reread.Quiz)
	}
	if len(reread.Questions) != len(req.Questions) {
		t.Fatalf("got %d questions, want %d", len(reread.Questions), len(req.Questions))
	}
	for i, q := range reread.Questions {
		if q.Position != i+1 {
			t.Errorf("question %d: position = %d, want %d", i, q.Position, i+1)
		}
		if q.Text != req.Questions[i].Text {
			t.Errorf("question %d: text = %q, want %q", i, q.Text, req.Questions[i].Text)
		}
		if len(q.Options) != len(req.Questions[i].Options) {
			t.Fatalf("question %d: got %d options, want %d", i, len(q.Options), len(req.Questions[i].Options))
		}
		for j, opt := range q.Options {
			want := req.Questions[i].Options[j]
			if opt.Position != j+1 {
				t.Errorf("question %d option %d: position = %d, want %d", i, j, opt.Position, j+1)
			}
			if opt.Text != want.Text || opt.IsCorrect != want.IsCorrect {
				t.Errorf("question %d option %d: got (%q, %v), want (%q, %v)", i, j, opt.Text, opt.IsCorrect, want.Text, want.IsCorrect)
			}
		}
	}
}

func TestCreateQuizValidation(t *testing.T) {
	f := newFixture(t)

	noTitle := twoQuestionQuiz()
	noTitle.Title = ""

	noQuestions := twoQuestionQuiz()
	noQuestions.Questions = nil

	noOptions := twoQuestionQuiz()
	noOptions.Questions[0].Options = nil

	emptyQuestionText := twoQuestionQuiz()
	emptyQuestionText.Questions[1].Text = ""

	emptyOptionText := twoQuestionQuiz()
	emptyOptionText.Questions[0].Options[1].Text = ""

	cases := []struct {
		name string
		req  CreateQuizRequest
	}{
		{"no title", noTitle},
		{"no questions", noQuestions},
		{"question without options", noOptions},
		{"empty question text", emptyQuestionText},
		{"empty option text", emptyOptionText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateQuiz(f.teacher.ID, f.class.ID, tc.req)
			if !errors.Is(err, util.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}

	// 校验失败时不允许有任何落库
	for _, m := range []interface{}{&model.Quiz{}, &model.QuizQuestion{}, &model.QuizOption{}} {
		var count int64
		f.db.Model(m).Count(&count)
		if count != 0 {
			t.Errorf("%T: %d rows written after failed validation", m, count)
		}
	}
}

func TestCreateQuizStrictSingleCorrect(t *testing.T) {
	f := newFixture(t)
	f.svc.SetStrictSingleCorrect(true)

	req := twoQuestionQuiz()
	req.Questions[0].Options[1].IsCorrect = true // 两个正确选项

	if _, err := f.svc.CreateQuiz(f.teacher.ID, f.class.ID, req); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	f.svc.SetStrictSingleCorrect(false)
	if _, err := f.svc.CreateQuiz(f.teacher.ID, f.class.ID, req); err != nil {
		t.Fatalf("create with flag off: %v", err)
	}
}

func TestCreateQuizAuthorization(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.CreateQuiz(f.student.ID, f.class.ID, twoQuestionQuiz()); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("student authored quiz: err = %v, want permission denied", err)
	}

	var count int64
	f.db.Model(&model.Quiz{}).Count(&count)
	if count != 0 {
		t.Errorf("%d quizzes written after denied create", count)
	}
}

func TestCreateQuizRollbackOnMidTransactionFailure(t *testing.T) {
	f := newFixture(t)

	// 强制选项插入失败，验证整卷回滚
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_option_insert", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "quiz_options" {
			tx.AddError(errors.New("forced option insert failure"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer f.db.Callback().Create().Remove("test:fail_option_insert")

	_, err = f.svc.CreateQuiz(f.teacher.ID, f.class.ID, twoQuestionQuiz())
	if !errors.Is(err, util.ErrStorage) {
		t.Fatalf("err = %v, want storage error", err)
	}

	for _, m := range []interface{}{&model.Quiz{}, &model.QuizQuestion{}, &model.QuizOption{}} {
		var count int64
		f.db.Model(m).Count(&count)
		if count != 0 {
			t.Errorf("%T: %d rows persisted after rollback", m, count)
		}
	}
}

// optionID 按题序与选项序取出选项ID
func optionID(t *testing.T, detail *QuizDetail, questionIdx, optionIdx int) uint {
	t.Helper()
	if questionIdx >= len(detail.Questions) || optionIdx >= len(detail.Questions[questionIdx].Options) {
		t.Fatalf("option index (%d,%d) out of range", questionIdx, optionIdx)
	}
	return detail.Questions[questionIdx].Options[optionIdx].ID
}

func TestSubmitQuizScoring(t *testing.T) {
	f := newFixture(t)
	quiz := f.mustCreateQuiz(t, twoQuestionQuiz())

	q1, q2 := quiz.Questions[0].ID, quiz.Questions[1].ID
	optA := optionID(t, quiz, 0, 0) // 正确
	optC := optionID(t, quiz, 1, 0) // 错误

	sub, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{
			{QuestionID: q1, SelectedOptionID: &optA},
			{QuestionID: q2, SelectedOptionID: &optC},
		},
	})
	if err != nil {
		t.Fatalf("submit quiz: %v", err)
	}

	if sub.Score != 1 {
		t.Errorf("score = %d, want 1", sub.Score)
	}
	if len(sub.Answers) != 2 {
		t.Fatalf("got %d answers, want 2", len(sub.Answers))
	}
	if !sub.Answers[0].IsCorrect || sub.Answers[1].IsCorrect {
		t.Errorf("answer flags = (%v, %v), want (true, false)", sub.Answers[0].IsCorrect, sub.Answers[1].IsCorrect)
	}

	// 落库分数与返回一致
	var stored model.QuizSubmission
	if err := f.db.First(&stored, sub.ID).Error; err != nil {
		t.Fatalf("load stored submission: %v", err)
	}
	if stored.Score != sub.Score {
		t.Errorf("stored score = %d, returned %d", stored.Score, sub.Score)
	}
}

func TestSubmitQuizUnansweredQuestion(t *testing.T) {
	f := newFixture(t)
	quiz := f.mustCreateQuiz(t, twoQuestionQuiz())

	q1, q2 := quiz.Questions[0].ID, quiz.Questions[1].ID
	optD := optionID(t, quiz, 1, 1) // 正确

	sub, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{
			{QuestionID: q1, SelectedOptionID: nil}, // 未作答
			{QuestionID: q2, SelectedOptionID: &optD},
		},
	})
	if err != nil {
		t.Fatalf("submit quiz: %v", err)
	}

	if sub.Score != 1 {
		t.Errorf("score = %d, want 1", sub.Score)
	}
	if sub.Answers[0].IsCorrect {
		t.Error("unanswered question graded as correct")
	}
	if sub.Answers[0].SelectedOptionID != nil {
		t.Error("unanswered question stored a selected option")
	}
	if !sub.Answers[1].IsCorrect {
		t.Error("correct answer graded as incorrect")
	}
}

func TestSubmitQuizNoCorrectOptionGradesIncorrect(t *testing.T) {
	f := newFixture(t)
	req := CreateQuizRequest{
		Title: "No correct option",
		Questions: []CreateQuestionRequest{
			{Text: "Pick one", Options: []CreateOptionRequest{{Text: "A"}, {Text: "B"}}},
		},
	}
	quiz := f.mustCreateQuiz(t, req)

	optA := optionID(t, quiz, 0, 0)
	sub, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: quiz.Questions[0].ID, SelectedOptionID: &optA}},
	})
	if err != nil {
		t.Fatalf("submit quiz: %v", err)
	}
	if sub.Score != 0 || sub.Answers[0].IsCorrect {
		t.Errorf("score = %d, isCorrect = %v; want 0, false", sub.Score, sub.Answers[0].IsCorrect)
	}
}

func TestSubmitQuizLastCorrectOptionWins(t *testing.T) {
	f := newFixture(t)
	// 同题两个正确选项：扫描中后出现的生效
	req := CreateQuizRequest{
		Title: "Ambiguous authoring",
		Questions: []CreateQuestionRequest{
			{Text: "Pick one", Options: []CreateOptionRequest{
				{Text: "X", IsCorrect: true},
				{Text: "Y", IsCorrect: true},
			}},
		},
	}
	quiz := f.mustCreateQuiz(t, req)
	questionID := quiz.Questions[0].ID
	optX := optionID(t, quiz, 0, 0)
	optY := optionID(t, quiz, 0, 1)

	subX, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: questionID, SelectedOptionID: &optX}},
	})
	if err != nil {
		t.Fatalf("submit X: %v", err)
	}
	subY, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: questionID, SelectedOptionID: &optY}},
	})
	if err != nil {
		t.Fatalf("submit Y: %v", err)
	}

	if subX.Score != 0 {
		t.Errorf("earlier correct option scored %d, want 0", subX.Score)
	}
	if subY.Score != 1 {
		t.Errorf("later correct option scored %d, want 1", subY.Score)
	}
}

func TestSubmitQuizRepeatedSubmissionsStack(t *testing.T) {
	f := newFixture(t)
	quiz := f.mustCreateQuiz(t, twoQuestionQuiz())

	q1, q2 := quiz.Questions[0].ID, quiz.Questions[1].ID
	optA := optionID(t, quiz, 0, 0) // 正确
	optD := optionID(t, quiz, 1, 1) // 正确
	optB := optionID(t, quiz, 0, 1) // 错误

	first, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{
			{QuestionID: q1, SelectedOptionID: &optB},
			{QuestionID: q2, SelectedOptionID: &optD},
		},
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{
			{QuestionID: q1, SelectedOptionID: &optA},
			{QuestionID: q2, SelectedOptionID: &optD},
		},
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	// 不做 (quiz, student) 查重：两次提交两行，分数互不影响
	var count int64
	f.db.Model(&model.QuizSubmission{}).
		Where("quiz_id = ? AND student_id = ?", quiz.ID, f.student.ID).
		Count(&count)
	if count != 2 {
		t.Fatalf("got %d submission rows, want 2", count)
	}
	if first.Score != 1 || second.Score != 2 {
		t.Errorf("scores = (%d, %d), want (1, 2)", first.Score, second.Score)
	}

	// 读取侧取最新一条
	latest, err := f.svc.GetSubmission(quiz.ID, f.student.ID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if latest == nil || latest.ID != second.ID {
		t.Fatalf("latest submission = %+v, want id %d", latest, second.ID)
	}
	if len(latest.Answers) != 2 {
		t.Errorf("latest submission has %d answers, want 2", len(latest.Answers))
	}
}

func TestSubmitQuizValidation(t *testing.T) {
	f := newFixture(t)
	quiz := f.mustCreateQuiz(t, twoQuestionQuiz())
	other := f.mustCreateQuiz(t, CreateQuizRequest{
		Title: "Other quiz",
		Questions: []CreateQuestionRequest{
			{Text: "Foreign question", Options: []CreateOptionRequest{{Text: "Z", IsCorrect: true}}},
		},
	})

	if _, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{}); !errors.Is(err, util.ErrValidation) {
		t.Errorf("empty answers: err = %v, want validation error", err)
	}

	foreign := other.Questions[0].ID
	_, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: foreign}},
	})
	if !errors.Is(err, util.ErrValidation) {
		t.Errorf("foreign question: err = %v, want validation error", err)
	}

	if _, err := f.svc.SubmitQuiz(f.student.ID, 9999, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: quiz.Questions[0].ID}},
	}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("absent quiz: err = %v, want not found", err)
	}

	if _, err := f.svc.SubmitQuiz(f.teacher.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: quiz.Questions[0].ID}},
	}); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("teacher submit: err = %v, want permission denied", err)
	}

	// 以上失败都不允许写入任何提交
	var count int64
	f.db.Model(&model.QuizSubmission{}).Count(&count)
	if count != 0 {
		t.Errorf("%d submissions written by failed calls", count)
	}
}

func TestGetQuizNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.GetQuiz(42); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestGetSubmissionNone(t *testing.T) {
	f := newFixture(t)
	quiz := f.mustCreateQuiz(t, twoQuestionQuiz())

	sub, err := f.svc.GetSubmission(quiz.ID, f.student.ID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if sub != nil {
		t.Fatalf("submission = %+v, want nil", sub)
	}
}

func TestListQuizzesOrder(t *testing.T) {
	f := newFixture(t)

	due := func(d time.Duration) *time.Time {
		ts := time.Now().Add(d).Truncate(time.Second)
		return &ts
	}
	reqLater := twoQuestionQuiz()
	reqLater.Title = "Due later"
	reqLater.DueAt = due(48 * time.Hour)
	reqSoon := twoQuestionQuiz()
	reqSoon.Title = "Due soon"
	reqSoon.DueAt = due(24 * time.Hour)
	reqNoDue := twoQuestionQuiz()
	reqNoDue.Title = "No due date"

	f.mustCreateQuiz(t, reqNoDue)
	f.mustCreateQuiz(t, reqSoon)
	f.mustCreateQuiz(t, reqLater)

	quizzes, err := f.svc.ListQuizzes(f.class.ID)
	if err != nil {
		t.Fatalf("list quizzes: %v", err)
	}
	if len(quizzes) != 3 {
		t.Fatalf("got %d quizzes, want 3", len(quizzes))
	}

	// 截止时间倒序，未设截止的排最后
	wantTitles := []string{"Due later", "Due soon", "No due date"}
	for i, want := range wantTitles {
		if quizzes[i].Title != want {
			t.Errorf("quizzes[%d] = %q, want %q", i, quizzes[i].Title, want)
		}
	}
}

func TestListSubmissionsForTeacher(t *testing.T) {
	f := newFixture(t)
	quiz := f.mustCreateQuiz(t, twoQuestionQuiz())

	optA := optionID(t, quiz, 0, 0)
	if _, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: quiz.Questions[0].ID, SelectedOptionID: &optA}},
	}); err != nil {
		t.Fatalf("submit quiz: %v", err)
	}

	rows, err := f.svc.ListSubmissions(f.teacher.ID, quiz.ID)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].StudentName != f.student.FullName || rows[0].StudentEmail != f.student.Email {
		t.Errorf("student identity = (%q, %q), want (%q, %q)",
			rows[0].StudentName, rows[0].StudentEmail, f.student.FullName, f.student.Email)
	}

	if _, err := f.svc.ListSubmissions(f.student.ID, quiz.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("student listed submissions: err = %v, want permission denied", err)
	}
}

func TestDeleteQuizCascade(t *testing.T) {
	f := newFixture(t)
	quiz := f.mustCreateQuiz(t, twoQuestionQuiz())

	optA := optionID(t, quiz, 0, 0)
	if _, err := f.svc.SubmitQuiz(f.student.ID, quiz.ID, SubmitQuizRequest{
		Answers: []AnswerRequest{{QuestionID: quiz.Questions[0].ID, SelectedOptionID: &optA}},
	}); err != nil {
		t.Fatalf("submit quiz: %v", err)
	}

	if err := f.svc.DeleteQuiz(f.student.ID, quiz.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("student deleted quiz: err = %v, want permission denied", err)
	}

	otherTeacher := model.User{Username: "teacher2", FullName: "Teacher Two", Email: "teacher2@example.com", Password: "secret", Role: model.Teacher}
	if err := f.db.Create(&otherTeacher).Error; err != nil {
		t.Fatalf("seed other teacher: %v", err)
	}
	if err := f.svc.DeleteQuiz(otherTeacher.ID, quiz.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("foreign teacher deleted quiz: err = %v, want permission denied", err)
	}

	if err := f.svc.DeleteQuiz(f.teacher.ID, quiz.ID); err != nil {
		t.Fatalf("delete quiz: %v", err)
	}

	if _, err := f.svc.GetQuiz(quiz.ID); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("deleted quiz still readable: err = %v", err)
	}
	for _, m := range []interface{}{&model.QuizQuestion{}, &model.QuizOption{}, &model.QuizSubmission{}, &model.QuizAnswer{}} {
		var count int64
		f.db.Model(m).Count(&count)
		if count != 0 {
			t.Errorf("%T: %d rows survived cascade delete", m, count)
		}
	}

	if err := f.svc.DeleteQuiz(f.teacher.ID, quiz.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("second delete: err = %v, want not found", err)
	}
}
