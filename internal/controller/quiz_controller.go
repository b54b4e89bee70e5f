package controller

import (
	"classroom_backend/internal/service"
	"classroom_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// @Summary 创建测验（整卷含题目与选项）
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param classId path int true "班级ID"
// @Param body body service.CreateQuizRequest true "测验内容"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /classes/{classId}/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	classID, ok := parseUintParam(ctx, "classId")
	if !ok {
		return
	}

	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.CreateQuiz(user.UserID, classID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, quiz)
}

// @Summary 获取班级的测验列表
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param classId path int true "班级ID"
// @Success 200 {object} util.Response
// @Router /classes/{classId}/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	classID, ok := parseUintParam(ctx, "classId")
	if !ok {
		return
	}

	quizzes, err := c.Service.ListQuizzes(classID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, quizzes)
}

// @Summary 获取测验详情（嵌套题目与选项）
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	quiz, err := c.Service.GetQuiz(quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// @Summary 提交测验答案并自动判分
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.SubmitQuizRequest true "答案列表"
// @Success 201 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /quizzes/{id}/submissions [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.Service.SubmitQuiz(user.UserID, quizID, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, submission)
}

// @Summary 获取本人最近一次提交（无提交时 data 为 null）
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/my-submission [get]
func (c *QuizController) GetMySubmission(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	submission, err := c.Service.GetSubmission(quizID, user.UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}

// @Summary 获取测验的全部提交（教师端）
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /quizzes/{id}/submissions [get]
func (c *QuizController) ListSubmissions(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	rows, err := c.Service.ListSubmissions(user.UserID, quizID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": rows, "total": len(rows)})
}

// @Summary 删除测验（级联删除题目、选项与提交）
// @Tags 测验模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.Service.DeleteQuiz(user.UserID, quizID); err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": quizID})
}
