// Package models defines the persistent entities of the cidhub workspace
// and the domain errors the store layer returns for them.
package models

// AllModels returns every model for GORM auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&Alias{},
		&Server{},
		&Variable{},
		&Secret{},
		&CIDRecord{},
		&EntityInteraction{},
		&ServerInvocation{},
		&Export{},
	}
}
