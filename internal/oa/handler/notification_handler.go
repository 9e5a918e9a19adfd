package handler

import (
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 站内信处理器
type NotificationHandler struct {
	repo *repository.NotificationRepository
}

func NewNotificationHandler(repo *repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{repo: repo}
}

// ListMine 我的站内信
// GET /api/v1/oa/notifications
func (h *NotificationHandler) ListMine(c *gin.Context) {
	userID := GetUserID(c)
	if userID == "" {
		Error(c, 40100, "missing user identity")
		return
	}

	page, pageSize := GetPagination(c)
	items, total, err := h.repo.FindDeliveriesForEmployee(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		InternalError(c, "获取站内信失败: "+err.Error())
		return
	}

	Success(c, listOf(items, page, pageSize, total))
}
