package models

// All lists every model the schema is migrated from.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Contract{},
		&UserContract{},
		&Report{},
		&ReportParticipant{},
		&PayoutRequest{},
		&Setting{},
		&AuditLog{},
		&RefreshToken{},
		&RevokedToken{},
	}
}
