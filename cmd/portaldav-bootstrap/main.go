// Command portaldav-bootstrap seeds a user with a default calendar and
// address book so DAV clients can connect to a fresh install.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pkondrat/portaldav/internal/config"
	"github.com/pkondrat/portaldav/internal/logging"
	"github.com/pkondrat/portaldav/internal/storage"
	"github.com/pkondrat/portaldav/internal/storage/postgres"
	"github.com/pkondrat/portaldav/internal/storage/sqlite"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		username string
		password string
		name     string
	)
	flag.StringVar(&username, "username", "", "Login name (required)")
	flag.StringVar(&password, "password", "", "Password (required)")
	flag.StringVar(&name, "name", "", "Display name for the default calendar (optional)")
	flag.Parse()

	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "usage: portaldav-bootstrap -username <name> -password <secret> [-name <calendar name>]")
		os.Exit(2)
	}
	if name == "" {
		name = "Calendar"
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger = logger.With().Str("component", "bootstrap").Logger()

	var store storage.Store
	switch cfg.Storage.Type {
	case "postgres":
		store, err = postgres.New(cfg.Storage.PostgresURL, logger)
	case "sqlite":
		store, err = sqlite.New(cfg.Storage.SQLitePath, logger)
	default:
		err = fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage init: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	user := &storage.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateUser(ctx, user); err != nil {
		fmt.Fprintf(os.Stderr, "create user: %v\n", err)
		os.Exit(1)
	}

	cal := &storage.Calendar{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Name:    name,
		Visible: true,
	}
	if err := store.CreateCalendar(ctx, cal); err != nil {
		fmt.Fprintf(os.Stderr, "create calendar: %v\n", err)
		os.Exit(1)
	}

	ab := &storage.AddressBook{
		ID:     uuid.NewString(),
		UserID: user.ID,
		Name:   "Contacts",
	}
	if err := store.CreateAddressBook(ctx, ab); err != nil {
		fmt.Fprintf(os.Stderr, "create address book: %v\n", err)
		os.Exit(1)
	}

	logger.Info().
		Str("username", username).
		Str("calendar_id", cal.ID).
		Str("addressbook_id", ab.ID).
		Msg("user bootstrapped")

	fmt.Printf("Created user %s with calendar %s and address book %s\n", username, cal.ID, ab.ID)
}
