package model

type SessionType string

const (
	SessionTypeUser SessionType = "USER"
	SessionTypeBot  SessionType = "BOT"
)

type SessionStatus string

const (
	SessionStatusPending SessionStatus = "PENDING"
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusError   SessionStatus = "ERROR"
	SessionStatusExpired SessionStatus = "EXPIRED"
)

type DialogType string

const (
	DialogTypePrivate    DialogType = "PRIVATE"
	DialogTypeGroup      DialogType = "GROUP"
	DialogTypeSupergroup DialogType = "SUPERGROUP"
	DialogTypeChannel    DialogType = "CHANNEL"
)

type JobType string

const (
	JobTypeCollectMembers JobType = "COLLECT_MEMBERS"
	JobTypeSyncDialogs    JobType = "SYNC_DIALOGS"
	JobTypeSyncContacts   JobType = "SYNC_CONTACTS"
	JobTypeExportData     JobType = "EXPORT_DATA"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "PENDING"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusCompleted  ExportStatus = "COMPLETED"
	ExportStatusFailed     ExportStatus = "FAILED"
	ExportStatusExpired    ExportStatus = "EXPIRED"
)

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)
