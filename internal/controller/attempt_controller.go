package controller

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/service"
	"assessment_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Attempts  *service.AttemptService
	AntiCheat *service.AntiCheatService
}

func NewAttemptController(attempts *service.AttemptService, antiCheat *service.AntiCheatService) *AttemptController {
	return &AttemptController{Attempts: attempts, AntiCheat: antiCheat}
}

// @Summary 开始或恢复作答
// @Description 同一活动已有进行中的作答时直接返回它，题目顺序不变
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "活动ID"
// @Success 200 {object} util.Response
// @Router /api/{exams|cases|inquiries}/{id}/attempts [post]
func (c *AttemptController) Start(mode model.ActivityMode) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}

		view, err := c.Attempts.Start(ctx.Request.Context(), user.UserID, ctx.Param("id"), mode)
		if err != nil {
			util.RespondError(ctx, err)
			return
		}
		if view.Resumed {
			util.Success(ctx, view)
			return
		}
		util.Created(ctx, view)
	}
}

// @Summary 作答状态
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "活动ID"
// @Success 200 {object} util.Response
// @Router /api/{exams|cases|inquiries}/{id}/status [get]
func (c *AttemptController) Status(mode model.ActivityMode) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}

		status, err := c.Attempts.GetStatus(ctx.Request.Context(), user.UserID, ctx.Param("id"), mode)
		if err != nil {
			util.RespondError(ctx, err)
			return
		}
		util.Success(ctx, status)
	}
}

// @Summary 获取作答详情
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Attempts.GetAttempt(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 保存作答
// @Description 考试提交选项下标，案例提交 issues/solution，探究提交 text
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Param questionId path string true "题目ID / 场景ID / 提问槽位"
// @Param body body service.ResponseInput true "作答内容"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/responses/{questionId} [put]
func (c *AttemptController) SaveResponse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ResponseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Attempts.SaveResponse(ctx.Request.Context(), user.UserID, ctx.Param("id"), ctx.Param("questionId"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 提交作答
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	res, err := c.Attempts.Submit(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 进入下一场景
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/scenario/advance [post]
func (c *AttemptController) AdvanceScenario(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	view, err := c.Attempts.AdvanceScenario(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 上报防作弊数据
// @Description 计数为累计值，events 只需包含上次同步之后的新事件，按 sequence 去重
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Param body body service.CheatingStatsInput true "防作弊数据"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/cheating-stats [post]
func (c *AttemptController) UpdateCheatingStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CheatingStatsInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.AntiCheat.UpdateCheatingStats(ctx.Request.Context(), user.UserID, ctx.Param("id"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 教师端：查看作答的防作弊事件
// @Tags 教师-作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/attempts/{id}/cheating-events [get]
func (c *AttemptController) ListCheatingEvents(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	report, err := c.AntiCheat.ListCheatingEvents(ctx.Request.Context(), user.UserID, user.Role, ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
