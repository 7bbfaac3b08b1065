package domain

import "time"

// NotificationAction clasifica el evento que genera una notificación.
type NotificationAction string

const (
	ActionSignal         NotificationAction = "SIGNAL"
	ActionSignalFiltered NotificationAction = "SIGNAL_FILTERED"
	ActionPositionOpen   NotificationAction = "POSITION_OPEN"
	ActionPositionClose  NotificationAction = "POSITION_CLOSE"
	ActionRedeem         NotificationAction = "REDEEM"
	ActionOrderFailed    NotificationAction = "ORDER_FAILED"
	ActionHalt           NotificationAction = "HALT"
)

// Notification es una entrada del registro de eventos operativos.
// El registro es append-only: una vez creada solo cambia el flag Consumed,
// que marca que un canal externo ya la entregó.
type Notification struct {
	ID        int64
	Action    NotificationAction
	MarketID  string
	Strategy  string
	Message   string
	CreatedAt time.Time
	Consumed  bool
}
