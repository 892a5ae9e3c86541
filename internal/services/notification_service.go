package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/innovatehubph/payverse-backend/internal/models"
)

// NotificationService queues user-facing notifications for the delivery
// worker. Strictly fire-and-forget: a notification failure must never roll
// back or block a saga.
type NotificationService struct {
	redis *redis.Client
}

func NewNotificationService(redisClient *redis.Client) *NotificationService {
	return &NotificationService{redis: redisClient}
}

type exchangeNotification struct {
	UserID    int       `json:"user_id"`
	Nonce     string    `json:"nonce"`
	Direction string    `json:"direction"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reference int       `json:"reference"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NotifyExchangeOutcome queues a notification for a saga that reached a
// terminal state. The message never claims success unless the saga completed.
func (n *NotificationService) NotifyExchangeOutcome(tx *models.ExchangeTransaction) {
	event := exchangeNotification{
		UserID:    tx.UserID,
		Nonce:     tx.Nonce,
		Direction: string(tx.Direction),
		Amount:    tx.Amount,
		Status:    string(tx.Status),
		Reference: tx.ID,
		CreatedAt: time.Now(),
	}

	switch tx.Status {
	case models.StatusCompleted:
		event.Message = "Your chip exchange completed successfully."
	case models.StatusFailed:
		event.Message = "Your chip exchange could not be completed. Your funds were restored."
	case models.StatusManualRequired:
		event.Message = "Your chip exchange needs attention. Our support team will follow up; please quote this reference."
	default:
		event.Message = "Your chip exchange is being processed."
	}

	if n.redis == nil {
		log.Printf("[NOTIFY] Redis unavailable, notification for user %d logged only: %s", tx.UserID, event.Message)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[NOTIFY] Failed to encode notification for user %d: %v", tx.UserID, err)
		return
	}

	if err := n.redis.RPush(context.Background(), "notification_queue", data).Err(); err != nil {
		log.Printf("[NOTIFY] Failed to queue notification for user %d: %v", tx.UserID, err)
	}
}
