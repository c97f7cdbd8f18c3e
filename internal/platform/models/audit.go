package models

type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

type AuditLogEntry struct {
	ID             string                 `json:"id"`
	TableName      string                 `json:"table_name"`
	UpdatedAt      int64                  `json:"updated_at"`
	UserIdentifier string                 `json:"user_identifier"`
	BeforeUpdate   map[string]interface{} `json:"before_update"`
	AfterUpdate    map[string]interface{} `json:"after_update"`
	Diff           map[string]FieldChange `json:"diff"`
	IDObject       string                 `json:"id_object"`
}
