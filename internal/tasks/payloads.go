package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeConfirmationEmail = "email:confirmation"
)

// ConfirmationEmailPayload 描述发送注册确认邮件所需的最小信息。
type ConfirmationEmailPayload struct {
	AccountID     uint   `json:"account_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewConfirmationEmailTask 构造一个注册确认邮件任务。
func NewConfirmationEmailTask(accountID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ConfirmationEmailPayload{
		AccountID:     accountID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeConfirmationEmail, payload), nil
}
