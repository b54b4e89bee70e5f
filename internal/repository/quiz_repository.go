package repository

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.DB.First(&quiz, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, util.Storagef("find quiz", err)
	}
	return &quiz, nil
}

// ListByClass 按截止时间排序：未设截止的排最后，其余按截止时间倒序（沿用教学端列表习惯）
func (r *QuizRepository) ListByClass(classID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("class_id = ?", classID).
		Order("due_at IS NULL, due_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, util.Storagef("list quizzes", err)
	}
	return quizzes, nil
}

func (r *QuizRepository) ListQuestions(quizID uint) ([]model.QuizQuestion, error) {
	var qs []model.QuizQuestion
	err := r.DB.Where("quiz_id = ?", quizID).Order("position asc").Find(&qs).Error
	if err != nil {
		return nil, util.Storagef("list questions", err)
	}
	return qs, nil
}

func (r *QuizRepository) ListOptions(questionIDs []uint) ([]model.QuizOption, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var opts []model.QuizOption
	err := r.DB.Where("question_id IN ?", questionIDs).Order("position asc").Find(&opts).Error
	if err != nil {
		return nil, util.Storagef("list options", err)
	}
	return opts, nil
}

// DeleteCascade 删除测验及其题目、选项、提交、答案，单事务内完成
func (r *QuizRepository) DeleteCascade(quizID uint) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		if err := tx.Model(&model.QuizQuestion{}).Where("quiz_id = ?", quizID).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.QuizOption{}).Error; err != nil {
				return err
			}
		}

		var submissionIDs []uint
		if err := tx.Model(&model.QuizSubmission{}).Where("quiz_id = ?", quizID).Pluck("id", &submissionIDs).Error; err != nil {
			return err
		}
		if len(submissionIDs) > 0 {
			if err := tx.Where("submission_id IN ?", submissionIDs).Delete(&model.QuizAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizSubmission{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("quiz_id = ?", quizID).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, "id = ?", quizID).Error
	})
	if err != nil {
		return util.Storagef("delete quiz", err)
	}
	return nil
}
