package database

import (
	"gorm.io/gorm"
)

// InitTriageDatabase opens the message store described by dbConfig.
func InitTriageDatabase(dbConfig *DatabaseConfig) (*gorm.DB, error) {
	return NewConnection(dbConfig)
}
