package models

import "time"

// Event types
const (
	EventTypeStoreConnected       = "STORE_CONNECTED"
	EventTypeStoreDisconnected    = "STORE_DISCONNECTED"
	EventTypeDataRefreshRequested = "DATA_REFRESH_REQUESTED"
	EventTypeDataRegenerated      = "DATA_REGENERATED"
	EventTypeQuestionAnswered     = "QUESTION_ANSWERED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StoreConnectedEvent published when a store is connected and seeded
type StoreConnectedEvent struct {
	BaseEvent
	StoreID    string `json:"store_id"`
	ShopDomain string `json:"shop_domain"`
	Products   int    `json:"products"`
	Orders     int    `json:"orders"`
	Customers  int    `json:"customers"`
}

// StoreDisconnectedEvent published when a store and its data are removed
type StoreDisconnectedEvent struct {
	BaseEvent
	StoreID string `json:"store_id"`
}

// DataRefreshRequestedEvent asks the refresh worker to regenerate mock data
type DataRefreshRequestedEvent struct {
	BaseEvent
	StoreID string `json:"store_id"`
}

// DataRegeneratedEvent published after mock data was replaced
type DataRegeneratedEvent struct {
	BaseEvent
	StoreID   string `json:"store_id"`
	Products  int    `json:"products"`
	Orders    int    `json:"orders"`
	Customers int    `json:"customers"`
}

// QuestionAnsweredEvent published after a question was answered and stored
type QuestionAnsweredEvent struct {
	BaseEvent
	StoreID    string     `json:"store_id"`
	QuestionID string     `json:"question_id"`
	Intent     Intent     `json:"intent"`
	Confidence Confidence `json:"confidence"`
}
