package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"batchtrack.io/tracker/internal/config"
	"batchtrack.io/tracker/internal/domain"
	"batchtrack.io/tracker/internal/mixer"
	"batchtrack.io/tracker/internal/monitor"
	"batchtrack.io/tracker/internal/pkg/logger"
	"batchtrack.io/tracker/internal/service"
	"batchtrack.io/tracker/internal/store"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestRun_Hash(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-hash", "s3cret"}, &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	h := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(h), []byte("s3cret")); err != nil {
		t.Fatalf("printed hash does not verify: %v", err)
	}
}

func TestSeedTickets(t *testing.T) {
	dir := t.TempDir()
	policy, err := mixer.NewPolicy(config.DefaultMixerTable())
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}
	st, err := store.Open(context.Background(), store.NewFileBackend(
		filepath.Join(dir, "tickets.json"),
		filepath.Join(dir, "archive_tickets.json"),
		filepath.Join(dir, "tickets_meta.json"),
	), policy, nil)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	tickets := service.NewTicketService(st, policy, nil, nil, monitor.Thresholds{Production: time.Hour, Lab: time.Hour})

	n, err := seedTickets(context.Background(), tickets)
	if err != nil {
		t.Fatalf("seedTickets() error = %v", err)
	}
	if n != len(demoTickets) {
		t.Fatalf("created = %d, want %d", n, len(demoTickets))
	}

	statuses := map[domain.Status]int{}
	for _, tk := range tickets.Active() {
		statuses[tk.Status]++
	}
	want := map[domain.Status]int{
		domain.StatusProductionStarted:  1,
		domain.StatusSampleSent:         1,
		domain.StatusCorrectionRequired: 1,
		domain.StatusAwaitingDischarge:  1,
	}
	for s, c := range want {
		if statuses[s] != c {
			t.Errorf("status %s count = %d, want %d", s, statuses[s], c)
		}
	}

	n, err = seedTickets(context.Background(), tickets)
	if err != nil {
		t.Fatalf("second seedTickets() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second run created %d tickets, want 0", n)
	}
}
