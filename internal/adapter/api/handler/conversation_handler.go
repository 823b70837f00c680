package handler

import (
	"github.com/labstack/echo/v4"

	"fuddly/internal/adapter/api/middleware"
	"fuddly/internal/usecase"
	"fuddly/pkg/errors"
	"fuddly/pkg/response"
	"fuddly/pkg/utils"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
	messageUseCase      *usecase.MessageUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase, messageUseCase *usecase.MessageUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
		messageUseCase:      messageUseCase,
	}
}

type createConversationRequest struct {
	ProductID string `json:"productId" validate:"required"`
	BuyerID   string `json:"buyerId" validate:"required"`
	SellerID  string `json:"sellerId" validate:"required"`
}

// CreateConversation returns the conversation for (product, buyer, seller),
// creating it on first contact. 201 when created, 200 when it already existed.
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	var req createConversationRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, created, err := h.conversationUseCase.GetOrCreate(c.Request().Context(), middleware.UserID(c), usecase.GetOrCreateInput{
		ProductID: req.ProductID,
		BuyerID:   req.BuyerID,
		SellerID:  req.SellerID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, conv)
	}
	return response.Success(c, conv)
}

func (h *ConversationHandler) ListConversations(c echo.Context) error {
	summaries, err := h.conversationUseCase.ListForUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, summaries)
}

func (h *ConversationHandler) GetConversation(c echo.Context) error {
	conv, err := h.conversationUseCase.Get(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

func (h *ConversationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.conversationUseCase.UnreadTotal(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"count": count})
}

// GetMessages returns one newest-first page of history.
func (h *ConversationHandler) GetMessages(c echo.Context) error {
	page := utils.GetLimitOffset(c, utils.DefaultMessageLimit, utils.MaxMessageLimit)

	messages, err := h.messageUseCase.Page(c.Request().Context(), middleware.UserID(c), c.Param("id"), page.Limit, page.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Page(c, messages, len(messages), page.Limit, page.Offset)
}

func (h *ConversationHandler) MarkRead(c echo.Context) error {
	marked, err := h.messageUseCase.MarkRead(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"marked": marked})
}
