// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

//go:build integration

package audit_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wildmere/wildmere/internal/audit"
	"github.com/wildmere/wildmere/internal/core"
)

// setupPostgresContainer starts a PostgreSQL container with the audit schema
// applied.
func setupPostgresContainer() (*audit.PostgresRecorder, func(), error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("wildmere_test"),
		postgres.WithUsername("wildmere"),
		postgres.WithPassword("wildmere"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, nil, err
	}

	migrator, err := audit.NewMigrator(connStr)
	if err != nil {
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		return nil, nil, err
	}
	_ = migrator.Close()

	recorder, err := audit.NewPostgresRecorder(ctx, connStr)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		recorder.Close()
		_ = container.Terminate(ctx)
	}

	return recorder, cleanup, nil
}

var _ = Describe("PostgresRecorder", func() {
	var recorder *audit.PostgresRecorder
	var cleanup func()

	BeforeEach(func() {
		var err error
		recorder, cleanup, err = setupPostgresContainer()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("Record", func() {
		It("stores entries and returns them newest first", func() {
			ctx := context.Background()

			first := audit.Entry{
				ID:            core.NewULID(),
				PlayerID:      core.NewULID().String(),
				AccountID:     "acct-1",
				LevelID:       "grove",
				ObjectID:      "shrine-1",
				InteractionID: "inspiration",
				Outcome:       "rejected",
				Reason:        "claim validation failed",
				CreatedAt:     time.Now().UTC(),
			}
			Expect(recorder.Record(ctx, first)).To(Succeed())

			second := first
			second.ID = core.NewULID()
			second.Reason = "malformed parameters"
			second.Outcome = "malformed"
			Expect(recorder.Record(ctx, second)).To(Succeed())

			entries, err := recorder.Recent(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].ID).To(Equal(second.ID))
			Expect(entries[0].Outcome).To(Equal("malformed"))
			Expect(entries[1].Reason).To(Equal("claim validation failed"))
		})

		It("honors the limit", func() {
			ctx := context.Background()
			for i := 0; i < 4; i++ {
				entry := audit.Entry{
					ID:            core.NewULID(),
					PlayerID:      "p",
					AccountID:     "a",
					LevelID:       "l",
					ObjectID:      "o",
					InteractionID: "i",
					Outcome:       "rejected",
					CreatedAt:     time.Now().UTC(),
				}
				Expect(recorder.Record(ctx, entry)).To(Succeed())
			}

			entries, err := recorder.Recent(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
		})
	})
})
