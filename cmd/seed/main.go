// Package main seeds a ticket store with demo data and prints bcrypt hashes
// for admin.secret_hash.
//
//	seed                 create demo tickets when the active collection is empty
//	seed -hash <secret>  print the bcrypt hash of secret and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"batchtrack.io/tracker/internal/app/modules"
	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	hash := fs.String("hash", "", "print the bcrypt hash of this secret and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *hash != "" {
		h, err := hashSecret(*hash)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, h)
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// Seeding must not publish notifications.
	cfg.Redis.Enabled = false

	ctx := context.Background()
	infra, err := modules.NewInfrastructure(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("init infrastructure: %w", err)
	}
	defer infra.Close()

	tickets := service.NewTicketService(infra.Store, infra.Policy, nil, nil, infra.Thresholds)
	n, err := seedTickets(ctx, tickets)
	if err != nil {
		return err
	}
	logger.Info("Data seeding completed", zap.Int("created", n))
	return nil
}

func hashSecret(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// demoTicket is one seeded ticket and the actions replayed on it.
type demoTicket struct {
	input   service.CreateInput
	actions []domain.Patch
}

var demoTickets = []demoTicket{
	{
		input: service.CreateInput{Product: "Gel", Brand: "AOS", Technology: "legacy", Mixer: "Mixer_1", Username: "operator1"},
	},
	{
		input: service.CreateInput{Product: "Dishware", Brand: "Sorti", Technology: "legacy", Mixer: "Mixer_5", Username: "operator2"},
		actions: []domain.Patch{
			{Action: domain.ActionSampleSentToLab, Username: "operator2"},
		},
	},
	{
		input: service.CreateInput{Product: "AS", Brand: "Biolan", Technology: "new", Mixer: "Mixer_11", Username: "operator1"},
		actions: []domain.Patch{
			{Action: domain.ActionSampleSentToLab, Username: "operator1"},
			{Action: domain.ActionSampleReceivedByLab, Username: "lab1"},
			{Action: domain.ActionCorrectionRequired, Username: "lab1", CorrectionNote: "adjust viscosity"},
		},
	},
	{
		input: service.CreateInput{Product: "Conditioner", Brand: "Freetime", Technology: "new", Mixer: "Mixer_14", Username: "operator3"},
		actions: []domain.Patch{
			{Action: domain.ActionSampleSentToLab, Username: "operator3"},
			{Action: domain.ActionSampleReceivedByLab, Username: "lab2"},
			{Action: domain.ActionAnalysisApproved, Username: "lab2", Details: "within tolerance"},
		},
	},
}

// seedTickets creates the demo tickets unless active tickets already exist.
func seedTickets(ctx context.Context, tickets *service.TicketService) (int, error) {
	if len(tickets.Active()) > 0 {
		logger.Info("Active tickets present, skipping seed")
		return 0, nil
	}

	created := 0
	for _, d := range demoTickets {
		t, err := tickets.Create(ctx, d.input)
		if err != nil {
			return created, fmt.Errorf("create %s ticket: %w", d.input.Mixer, err)
		}
		created++
		for _, p := range d.actions {
			if _, err := tickets.Update(ctx, t.TicketID, p); err != nil {
				return created, fmt.Errorf("apply %s to %s: %w", p.Action, t.TicketID, err)
			}
		}
	}
	return created, nil
}
