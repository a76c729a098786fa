package controller

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/service"
	"assessment_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	Service *service.LeaderboardService
}

func NewLeaderboardController(svc *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{Service: svc}
}

// @Summary 活动排行榜
// @Description 按得分降序，同分同名次
// @Tags 排行榜
// @Produce json
// @Security BearerAuth
// @Param id path string true "活动ID"
// @Success 200 {object} util.Response
// @Router /api/{exams|cases|inquiries}/{id}/leaderboard [get]
func (c *LeaderboardController) Leaderboard(mode model.ActivityMode) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := util.GetUserFromContext(ctx)
		if user == nil {
			util.Unauthorized(ctx)
			return
		}

		rows, err := c.Service.Leaderboard(ctx.Request.Context(), user.UserID, ctx.Param("id"), mode)
		if err != nil {
			util.RespondError(ctx, err)
			return
		}
		util.Success(ctx, rows)
	}
}
