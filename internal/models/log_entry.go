package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LogAction string

const (
	ActionRegister      LogAction = "register"
	ActionLogin         LogAction = "login"
	ActionLogout        LogAction = "logout"
	ActionUpload        LogAction = "upload"
	ActionDownload      LogAction = "download"
	ActionDelete        LogAction = "delete"
	ActionRollback      LogAction = "rollback"
	ActionShare         LogAction = "share"
	ActionShareDownload LogAction = "download_share"
)

// LogEntry is an append-only audit record. UserID and FileID are nullable:
// anonymous share downloads have no actor, and deleted users/files null out
// their references instead of cascading the history away.
type LogEntry struct {
	ID        int64           `db:"id" json:"id"`
	UserID    *uuid.UUID      `db:"user_id" json:"user_id"`
	Action    LogAction       `db:"action" json:"action"`
	FileID    *uuid.UUID      `db:"file_id" json:"file_id"`
	Details   json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress string          `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"timestamp"`
}
