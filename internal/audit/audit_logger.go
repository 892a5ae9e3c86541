package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Nonce     string    `json:"nonce"`
	UserID    int       `json:"user_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

// Logger emits one JSON audit line per saga transition so every exchange is
// reconstructable from the log stream alone.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogTransition(nonce string, userID int, amount int64, from, to string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "EXCHANGE_TRANSITION",
		Nonce:     nonce,
		UserID:    userID,
		Amount:    amount,
		Status:    to,
		Details:   map[string]string{"from": from},
	})
}

func (a *Logger) LogLegFailure(nonce string, userID int, leg, reason string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "EXCHANGE_LEG_FAILED",
		Nonce:     nonce,
		UserID:    userID,
		Status:    "FAILED",
		Details:   map[string]string{"leg": leg, "reason": reason},
	})
}

func (a *Logger) LogResolution(nonce string, operatorID int, outcome string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "OPERATOR_RESOLUTION",
		Nonce:     nonce,
		UserID:    operatorID,
		Status:    "RESOLVED",
		Details:   map[string]string{"outcome": outcome},
	})
}

func (a *Logger) LogRetry(nonce string, operatorID int, fromStatus string) {
	a.log(Event{
		Timestamp: time.Now(),
		EventType: "OPERATOR_RETRY",
		Nonce:     nonce,
		UserID:    operatorID,
		Status:    fromStatus,
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
