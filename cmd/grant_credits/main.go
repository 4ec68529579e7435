package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"qnagen-be/internal/config"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/repository/specification"
	"qnagen-be/internal/repository/unitofwork"
	"qnagen-be/internal/service"
	"qnagen-be/pkg/database"
	"qnagen-be/pkg/qgen"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// grant_credits tops up a user's ledger entry by hand:
//
//	go run ./cmd/grant_credits -user <uuid> -credits 10
//	go run ./cmd/grant_credits -user <uuid> -months 1 -credits 25
//	go run ./cmd/grant_credits -email someone@example.com -credits 5
func main() {
	userFlag := flag.String("user", "", "user id (uuid)")
	emailFlag := flag.String("email", "", "look the user up by email instead of id")
	credits := flag.Int("credits", 0, "credits to add")
	months := flag.Int("months", 0, "subscription months to add")
	reason := flag.String("reason", "manual grant", "reason recorded on the transaction")
	flag.Parse()

	if *userFlag == "" && *emailFlag == "" {
		color.Red("Pass -user or -email")
		os.Exit(2)
	}
	if *credits <= 0 && *months <= 0 {
		color.Red("Nothing to do: pass -credits and/or -months")
		os.Exit(2)
	}

	cfg := config.Load()
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	ctx := context.Background()

	userId, err := resolveUser(ctx, uowFactory, *userFlag, *emailFlag)
	if err != nil {
		color.Red("%v", err)
		os.Exit(2)
	}

	ledger := service.NewCreditService(
		uowFactory,
		nil,
		logger.NewNopLogger(),
		cfg.Credits.StartingGrant,
	)

	before, err := ledger.Load(ctx, userId)
	if err != nil {
		color.Red("Failed to load ledger entry: %v", err)
		os.Exit(1)
	}
	color.Cyan("User %s", userId)
	printSnapshot("Before", before)

	var after qgen.Snapshot
	if *months > 0 {
		after, err = ledger.ExtendSubscription(ctx, userId, *months, *credits)
	} else {
		after, err = ledger.Grant(ctx, userId, *credits, *reason)
	}
	if err != nil {
		color.Red("Grant failed: %v", err)
		os.Exit(1)
	}
	printSnapshot("After", after)
	color.Green("Done.")
}

// resolveUser prefers the explicit id. An email only matches users that
// already have a ledger entry.
func resolveUser(ctx context.Context, f unitofwork.RepositoryFactory, id, email string) (uuid.UUID, error) {
	if id != "" {
		userId, err := uuid.Parse(id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid -user: %w", err)
		}
		return userId, nil
	}
	user, err := f.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return uuid.Nil, fmt.Errorf("lookup by email failed: %w", err)
	}
	if user == nil {
		return uuid.Nil, fmt.Errorf("no ledger entry with email %s", email)
	}
	return user.Id, nil
}

func printSnapshot(label string, s qgen.Snapshot) {
	expiry := "none"
	if s.SubscriptionExpiry != nil {
		expiry = s.SubscriptionExpiry.Format("2006-01-02 15:04")
	}
	color.Yellow("%-6s credits=%d subscription_expires_at=%s", label, s.CreditBalance, expiry)
}
