package service

import (
	"classroom_backend/internal/model"
	"classroom_backend/internal/repository"
	"classroom_backend/internal/util"
	"errors"
	"fmt"
)

// AuthorizationGate 每个写操作调用一次的能力判定，判定细节与身份表隔离在实现里。
// 返回 nil 表示放行，否则为 util.ErrPermissionDenied 族错误。
type AuthorizationGate interface {
	CanAuthorQuiz(userID, classID uint) error
	CanTakeQuiz(userID uint, quiz *model.Quiz) error
	CanGradeQuiz(userID uint, quiz *model.Quiz) error
	CanDeleteQuiz(userID uint, quiz *model.Quiz) error
}

// AuthzService 基于角色 + 班级归属的默认实现
type AuthzService struct {
	UserRepo  *repository.UserRepository
	ClassRepo *repository.ClassRepository
}

func NewAuthzService(userRepo *repository.UserRepository, classRepo *repository.ClassRepository) *AuthzService {
	return &AuthzService{UserRepo: userRepo, ClassRepo: classRepo}
}

func (s *AuthzService) CanAuthorQuiz(userID, classID uint) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrPermissionDenied
		}
		return err
	}
	if user.Role != model.Teacher && user.Role != model.Admin {
		return fmt.Errorf("%w: only teachers can author quizzes", util.ErrPermissionDenied)
	}
	return nil
}

func (s *AuthzService) CanTakeQuiz(userID uint, quiz *model.Quiz) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrPermissionDenied
		}
		return err
	}
	if user.Role != model.Student {
		return fmt.Errorf("%w: only students can submit quizzes", util.ErrPermissionDenied)
	}
	enrolled, err := s.ClassRepo.IsEnrolled(quiz.ClassID, userID)
	if err != nil {
		return err
	}
	if !enrolled {
		return fmt.Errorf("%w: student is not enrolled in this class", util.ErrPermissionDenied)
	}
	return nil
}

func (s *AuthzService) CanGradeQuiz(userID uint, quiz *model.Quiz) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrPermissionDenied
		}
		return err
	}
	if user.Role != model.Teacher && user.Role != model.Admin {
		return fmt.Errorf("%w: only teachers can view submissions", util.ErrPermissionDenied)
	}
	return nil
}

// CanDeleteQuiz 除角色外还要求是该测验所属班级的任课教师（管理员放行）
func (s *AuthzService) CanDeleteQuiz(userID uint, quiz *model.Quiz) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrPermissionDenied
		}
		return err
	}
	if user.Role == model.Admin {
		return nil
	}
	if user.Role != model.Teacher {
		return util.ErrPermissionDenied
	}
	class, err := s.ClassRepo.FindByID(quiz.ClassID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrPermissionDenied
		}
		return err
	}
	if class.TeacherID != userID {
		return fmt.Errorf("%w: quiz belongs to another teacher's class", util.ErrPermissionDenied)
	}
	return nil
}
