package db

import (
	"collab-canvas/internal/shape"

	"github.com/sirupsen/logrus"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&shape.Shape{},
	)

	if err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("Database schema migrated successfully")
}
