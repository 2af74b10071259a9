package domain

import "time"

// Журнал важных действий: движения денег, переключения плагинов
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	ServerID  int64                  `db:"server_id" json:"server_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Категории
const (
	AuditCategoryBalance   = "balance"
	AuditCategoryPlugin    = "plugin"
	AuditCategoryCharacter = "character"
)

const (
	// Баланс
	AuditActionBalanceCredit = "balance_credit"
	AuditActionBalanceDebit  = "balance_debit"
	AuditActionTransfer      = "transfer"

	// Плагины
	AuditActionPluginEnabled  = "plugin_enabled"
	AuditActionPluginDisabled = "plugin_disabled"

	// Персонажи
	AuditActionCharacterCreate = "character_create"
	AuditActionCharacterUpdate = "character_update"
	AuditActionCharacterDelete = "character_delete"
)
