package controller

import (
	"assessment_engine_backend/internal/service"
	"assessment_engine_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type HubController struct {
	Hub *service.AttemptHub
}

func NewHubController(hub *service.AttemptHub) *HubController {
	return &HubController{Hub: hub}
}

// @Summary 作答推送 WebSocket
// @Description 推送倒计时校准与交卷通知，客户端可发送 {"type":"TIMER_SYNC","attemptId":"..."} 主动校准
// @Tags 作答
// @Param token query string true "JWT"
// @Router /api/ws [get]
func (c *HubController) Connect(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, user.UserID)
}
