package repository

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

// FindLatest 同一 (quiz, student) 可能有多行，读取时按提交时间+ID 取最新一条；
// 没有提交记录时返回 (nil, nil)
func (r *SubmissionRepository) FindLatest(quizID, studentID uint) (*model.QuizSubmission, error) {
	var sub model.QuizSubmission
	err := r.DB.Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("submitted_at DESC, id DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, util.Storagef("find submission", err)
	}
	return &sub, nil
}

func (r *SubmissionRepository) ListAnswers(submissionID uint) ([]model.QuizAnswer, error) {
	var answers []model.QuizAnswer
	err := r.DB.Where("submission_id = ?", submissionID).Order("id asc").Find(&answers).Error
	if err != nil {
		return nil, util.Storagef("list answers", err)
	}
	return answers, nil
}

type SubmissionListRow struct {
	model.QuizSubmission
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
}

// ListForQuiz 教师端查看某测验的全部提交，关联学生姓名与邮箱
func (r *SubmissionRepository) ListForQuiz(quizID uint) ([]SubmissionListRow, error) {
	var rows []SubmissionListRow
	err := r.DB.Table("quiz_submissions s").
		Select("s.*, u.full_name as student_name, u.email as student_email").
		Joins("JOIN users u ON u.id = s.student_id").
		Where("s.quiz_id = ? AND s.deleted_at IS NULL", quizID).
		Order("s.submitted_at desc").
		Scan(&rows).Error
	if err != nil {
		return nil, util.Storagef("list submissions", err)
	}
	return rows, nil
}
