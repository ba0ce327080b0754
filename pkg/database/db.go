package database

import (
	"fmt"
	"log"
	"os"
	"sync"

	"chirpnet.io/chirp/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB   *gorm.DB
	once sync.Once
)

func Connect() *gorm.DB {
	once.Do(func() {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			dsn = fmt.Sprintf(
				"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
				valueOrDefault("DB_HOST", "localhost"),
				valueOrDefault("DB_USER", "postgres"),
				os.Getenv("DB_PASS"),
				valueOrDefault("DB_NAME", "chirp"),
				valueOrDefault("DB_PORT", "5432"),
			)
		}

		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}

		DB = db
	})

	return DB
}

func GetDB() *gorm.DB {
	if DB == nil {
		return Connect()
	}
	return DB
}

// Migrate creates or updates the full schema. The model list is ordered so
// referenced tables exist before their dependents.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Post{},
		&model.Poll{},
		&model.PollVote{},
		&model.Hashtag{},
		&model.PostHashtag{},
		&model.Follow{},
		&model.Block{},
		&model.Mute{},
		&model.Like{},
		&model.Bookmark{},
		&model.Notification{},
		&model.CommunityNote{},
		&model.NoteRating{},
		&model.StaffNote{},
		&model.Conversation{},
		&model.ConversationMember{},
		&model.Message{},
		&model.Report{},
	)
}

func valueOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}
