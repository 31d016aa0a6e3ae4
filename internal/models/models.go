package models

// All returns every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Account{},
		&RevokedToken{},
		&Profile{},
		&UserRole{},
		&Complaint{},
		&Attachment{},
		&StatusHistory{},
		&AdminNote{},
	}
}
