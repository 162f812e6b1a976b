package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"chatserver/internal/domain"
	"chatserver/internal/logging"
	"chatserver/internal/security"
	"chatserver/internal/store/postgres"
	"chatserver/internal/store/sqlite"
)

// Seeds the database with fake users, one shared group, and a little chat
// history between the first two users. All seeded accounts share the same
// password so they are usable from a client during development.
const seedPassword = "password123"

func main() {
	driver := flag.String("driver", "sqlite", "database driver (postgres or sqlite)")
	dsn := flag.String("dsn", "chatserver.db", "database DSN or sqlite path")
	count := flag.Int("users", 10, "number of users to create")
	flag.Parse()

	logging.Init("development", false)
	gofakeit.Seed(time.Now().UnixNano())

	db, repos, err := open(*driver, *dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx := context.Background()
	hasher := security.NewPasswordHasher(0)
	hashed, err := hasher.Hash(seedPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("hash seed password")
	}

	users := make([]*domain.User, 0, *count)
	for i := 0; i < *count; i++ {
		username := fmt.Sprintf("%s %s", gofakeit.FirstName(), gofakeit.LastName())
		u := &domain.User{
			ID:             uuid.NewString(),
			Username:       username,
			Email:          gofakeit.Email(),
			HashedPassword: hashed,
			DisplayName:    strings.Fields(username)[0],
		}
		if err := repos.Users.Create(ctx, u); err != nil {
			log.Fatal().Err(err).Str("email", u.Email).Msg("create user")
		}
		users = append(users, u)
		log.Info().Str("email", u.Email).Str("id", u.ID).Msg("seeded user")
	}

	if len(users) < 2 {
		return
	}

	memberIDs := make([]string, len(users))
	for i, u := range users {
		memberIDs[i] = u.ID
	}
	group := &domain.Group{ID: uuid.NewString(), Name: gofakeit.HackerNoun() + " crew"}
	if err := repos.Groups.Create(ctx, group, memberIDs); err != nil {
		log.Fatal().Err(err).Msg("create group")
	}
	log.Info().Str("id", group.ID).Str("name", group.Name).Msg("seeded group")

	a, b := users[0], users[1]
	for i := 0; i < 5; i++ {
		sender, receiver := a, b
		if i%2 == 1 {
			sender, receiver = b, a
		}
		msg := &domain.Message{
			ID:          uuid.NewString(),
			SenderID:    sender.ID,
			ReceiverID:  receiver.ID,
			MessageType: domain.MessageTypeText,
			Content:     gofakeit.HipsterSentence(6),
		}
		if err := repos.Messages.Create(ctx, msg); err != nil {
			log.Fatal().Err(err).Msg("create message")
		}
	}

	for i := 0; i < 3; i++ {
		gm := &domain.GroupMessage{
			ID:          uuid.NewString(),
			GroupID:     group.ID,
			SenderID:    users[i%len(users)].ID,
			MessageType: domain.MessageTypeText,
			Content:     gofakeit.HipsterSentence(6),
		}
		if err := repos.GroupMessages.Create(ctx, gm); err != nil {
			log.Fatal().Err(err).Msg("create group message")
		}
	}

	log.Info().Int("users", len(users)).Msg("seeding complete")
	fmt.Fprintf(os.Stdout, "seeded %d users, password %q\n", len(users), seedPassword)
}

func open(driver, dsn string) (*sql.DB, *domain.Repositories, error) {
	switch driver {
	case "sqlite":
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, sqlite.NewRepositories(db), nil
	case "postgres":
		db, err := postgres.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, postgres.NewRepositories(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", driver)
	}
}
