package model

// Queue job names. Routing keys for the queue's named-handler dispatch.
const (
	QueueJobCollectMembers = "collect-members"
	QueueJobExportData     = "export-data"
)

// CollectMembersJobPayload travels through the queue; plain data only. The
// telegram dialog id is carried as int64 end to end.
type CollectMembersJobPayload struct {
	DialogID         string `json:"dialogId"`
	SessionID        string `json:"sessionId"`
	TelegramDialogID int64  `json:"telegramDialogId"`
	DialogTitle      string `json:"dialogTitle"`
	UserID           string `json:"userId"`
}

type ExportDataJobPayload struct {
	ExportID string `json:"exportId"`
	UserID   string `json:"userId"`
}
