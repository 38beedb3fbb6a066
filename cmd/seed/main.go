// seed creates a verified test account with a spread of messages in the local
// dev database, so the dashboard statistics have something to show.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/credential"
	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/ErlanBelekov/anonbox/internal/infrastructure/postgres"
)

const (
	defaultEmail    = "seed@test.local"
	defaultHandle   = "seed_user"
	defaultPassword = "seed-password"
)

// Days ago each message is backdated to. Spread across the day, week and month windows.
var messageAges = []int{0, 0, 1, 2, 2, 2, 5, 9, 13, 20, 29, 40, 65, 100, 200, 330}

var messageBodies = []string{
	"You explain things really clearly.",
	"Thanks for helping me last week.",
	"Your talk was the best one of the day.",
	"I think you should apply for that role.",
	"Keep posting, people read it.",
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	ctx := context.Background()

	if os.Getenv("ENV") == "production" {
		log.Fatal("refusing to seed a production database")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	email := getenv("SEED_EMAIL", defaultEmail)
	handle := getenv("SEED_HANDLE", defaultHandle)
	password := getenv("SEED_PASSWORD", defaultPassword)

	count := len(messageAges)
	if v := os.Getenv("SEED_MESSAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Fatalf("SEED_MESSAGES must be a non-negative integer, got %q", v)
		}
		count = n
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	repo := postgres.NewAccountRepository(pool)

	hash, err := credential.NewBcryptHasher(10).Hash(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	// Re-runs reuse the existing account and only add messages.
	acct, err := repo.Create(ctx, &domain.Account{
		Handle:            handle,
		ContactAddress:    email,
		CredentialHash:    hash,
		Verified:          true,
		AcceptingMessages: true,
	})
	switch {
	case errors.Is(err, domain.ErrDuplicateAddress):
		if acct, err = repo.FindByContactAddress(ctx, email); err != nil {
			log.Fatalf("find existing account %q: %v", email, err)
		}
	case errors.Is(err, domain.ErrDuplicateHandle):
		log.Fatalf("handle %q belongs to another account, set SEED_HANDLE", handle)
	case err != nil:
		log.Fatalf("create account: %v", err)
	}

	if !acct.AcceptingMessages {
		if acct, err = repo.SetAcceptingMessages(ctx, acct.ID, true); err != nil {
			log.Fatalf("enable messages: %v", err)
		}
	}

	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		age := messageAges[i%len(messageAges)]
		at := now.AddDate(0, 0, -age).Add(-time.Duration(i) * time.Minute)
		body := messageBodies[i%len(messageBodies)]
		if _, err := repo.AppendMessage(ctx, acct.Handle, body, at); err != nil {
			log.Fatalf("append message %d: %v", i, err)
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Email:         %s\n", acct.ContactAddress)
	fmt.Printf("  Username:      %s\n", acct.Handle)
	fmt.Printf("  Password:      %s\n", password)
	fmt.Printf("  Account ID:    %s\n", acct.ID)
	fmt.Printf("  Messages sent: %d\n", count)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1, sign in:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/auth/sign-in \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", acct.ContactAddress, password)
	fmt.Println()
	fmt.Println("  Step 2, read the dashboard:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/me/messages -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Step 3, send another message anonymously:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/messages \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"username\":\"%s\",\"message\":\"hello\"}'\n", acct.Handle)
}
