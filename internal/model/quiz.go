package model

import "time"

// swagger:model Quiz
type Quiz struct {
	BaseModel
	ClassID     uint       `gorm:"index;not null" json:"classId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	CreatedBy   uint       `gorm:"index;not null" json:"createdBy"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 只随测验整体创建，Position 为 1 开始的题序，决定展示与判分顺序
type QuizQuestion struct {
	BaseModel
	QuizID   uint   `gorm:"uniqueIndex:idx_quiz_question_position;not null" json:"quizId"`
	Text     string `gorm:"type:text;not null" json:"text"`
	Position int    `gorm:"uniqueIndex:idx_quiz_question_position;not null" json:"position"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// QuizOption 选项，IsCorrect 由出题人标记，引擎不强制单选唯一
type QuizOption struct {
	BaseModel
	QuestionID uint   `gorm:"uniqueIndex:idx_question_option_position;not null" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	Position   int    `gorm:"uniqueIndex:idx_question_option_position;not null" json:"position"`
	IsCorrect  bool   `gorm:"default:false;not null" json:"isCorrect"`
}

func (QuizOption) TableName() string {
	return "quiz_options"
}
