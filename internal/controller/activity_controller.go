package controller

import (
	"assessment_engine_backend/internal/service"
	"assessment_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ActivityController struct {
	Service *service.ActivityService
}

func NewActivityController(svc *service.ActivityService) *ActivityController {
	return &ActivityController{Service: svc}
}

// @Summary 教师端：创建活动
// @Description settings 按 mode 校验，考试需附带题目
// @Tags 教师-活动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateActivityRequest true "活动信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/activities [post]
func (c *ActivityController) CreateActivity(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	activity, err := c.Service.CreateActivity(ctx.Request.Context(), user.UserID, user.Role, req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, activity)
}

// @Summary 教师端：添加小组成员
// @Tags 教师-活动
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "小组ID"
// @Param body body service.AddMemberRequest true "成员信息"
// @Success 200 {object} util.Response
// @Router /api/teacher/groups/{id}/members [post]
func (c *ActivityController) AddMember(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.AddMemberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	member, err := c.Service.AddMember(ctx.Request.Context(), user.UserID, user.Role, ctx.Param("id"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, member)
}
