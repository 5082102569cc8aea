package dto

// HistoryQuery represents sync history query parameters
type HistoryQuery struct {
	Limit int `form:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
}

// EventsQuery represents log event query parameters
type EventsQuery struct {
	Level string `form:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Limit int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=1000"`
}

// SyncRequest represents a forced sync request. The body is optional.
type SyncRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=200"`
}
