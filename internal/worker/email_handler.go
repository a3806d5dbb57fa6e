package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"github.com/BartekTra/portfolioCreator-sub000/internal/database"
	"github.com/BartekTra/portfolioCreator-sub000/internal/email"
	"github.com/BartekTra/portfolioCreator-sub000/internal/tasks"
)

// ConfirmationEmailHandler 消费注册确认邮件任务。
type ConfirmationEmailHandler struct {
	db            *gorm.DB
	sender        *email.Sender
	publicBaseURL string
	logger        *slog.Logger
}

// NewConfirmationEmailHandler 构造处理器。
func NewConfirmationEmailHandler(db *gorm.DB, sender *email.Sender, publicBaseURL string, logger *slog.Logger) *ConfirmationEmailHandler {
	return &ConfirmationEmailHandler{
		db:            db,
		sender:        sender,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// ProcessTask 加载账号并发送带确认链接的邮件。
// 账号已删除或已确认时直接跳过，不计为失败。
func (h *ConfirmationEmailHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload tasks.ConfirmationEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := h.logger.With(
		slog.Uint64("account_id", uint64(payload.AccountID)),
		slog.String("correlation_id", payload.CorrelationID),
	)

	var account database.Account
	if err := h.db.WithContext(ctx).First(&account, payload.AccountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Info("confirmation email skipped: account gone")
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}

	if account.Confirmed || account.ConfirmationToken == "" {
		logger.Info("confirmation email skipped: account already confirmed")
		return nil
	}

	link := fmt.Sprintf("%s/v1/auth/confirm?token=%s", h.publicBaseURL, account.ConfirmationToken)
	body := fmt.Sprintf(
		"Hi %s,\n\nPlease confirm your email address to activate your account:\n\n%s\n\nIf you did not register, you can ignore this message.\n",
		account.Name,
		link,
	)

	if err := h.sender.Send(account.Email, "Confirm your account", body); err != nil {
		logger.Error("send confirmation email failed", slog.Any("error", err))
		return fmt.Errorf("send confirmation email: %w", err)
	}

	logger.Info("confirmation email sent")
	return nil
}
