package model

// swagger:model Class
type Class struct {
	BaseModel
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	TeacherID   uint   `gorm:"index;not null" json:"teacherId"`
}

func (Class) TableName() string {
	return "classes"
}

// Enrollment 学生选课关系，(class_id, student_id) 唯一
type Enrollment struct {
	BaseModel
	ClassID   uint `gorm:"uniqueIndex:idx_class_student;not null" json:"classId"`
	StudentID uint `gorm:"uniqueIndex:idx_class_student;not null" json:"studentId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
