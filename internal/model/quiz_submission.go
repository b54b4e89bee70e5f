package model

import "time"

// QuizSubmission 一次学生作答，评分在创建事务内完成。
// (quiz_id, student_id) 不做唯一约束，重复提交会产生多行（沿用现有产品语义）。
// swagger:model QuizSubmission
type QuizSubmission struct {
	BaseModel
	QuizID      uint      `gorm:"index;not null" json:"quizId"`
	StudentID   uint      `gorm:"index;not null" json:"studentId"`
	SubmittedAt time.Time `gorm:"not null" json:"submittedAt"`
	Score       int       `gorm:"default:0;not null" json:"score"`
}

func (QuizSubmission) TableName() string {
	return "quiz_submissions"
}

// QuizAnswer 单题作答，IsCorrect 在提交时刻判定，之后不再重算
type QuizAnswer struct {
	BaseModel
	SubmissionID     uint  `gorm:"index;not null" json:"submissionId"`
	QuestionID       uint  `gorm:"index;not null" json:"questionId"`
	SelectedOptionID *uint `json:"selectedOptionId"` // null = 未作答
	IsCorrect        bool  `gorm:"default:false;not null" json:"isCorrect"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
