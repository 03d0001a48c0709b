// Command audit prints the recent authentication events for one email address.
//
//	audit -email ana@example.com -limit 20
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/AnshRaj112/propertyhub-backend/internal/config"
	"github.com/AnshRaj112/propertyhub-backend/internal/database"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
)

func main() {
	email := flag.String("email", "", "email address to look up")
	limit := flag.Int64("limit", 20, "maximum number of events")
	flag.Parse()

	logger := log.New("production")
	if *email == "" {
		logger.Fatal().Msg("-email is required")
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.MongoURI == "" {
		logger.Fatal().Msg("MONGODB_URI is not set")
	}
	cipher, err := cfg.AuditCipher()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid audit encryption key")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, db, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer database.DisconnectMongo(client)

	events, err := services.NewMongoAuditLog(db, cipher, logger).Recent(ctx, *email, *limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read audit events")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOK\tIP\tEMAIL\tREASON")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.Action, e.Success, e.IP, e.Email, e.Reason)
	}
	w.Flush()
}
