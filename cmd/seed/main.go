package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"contacts-sync/internal/config"
	"contacts-sync/internal/database"
	"contacts-sync/internal/features/audit"
	"contacts-sync/internal/features/contact"
	"contacts-sync/internal/logger"
	"contacts-sync/pkg/utils"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// seedCustomer is one entry of the seed file.
type seedCustomer struct {
	CustomerID   string                 `json:"customerId"`
	CustomerName string                 `json:"customerName"`
	Contacts     []contact.ContactInput `json:"contacts"`
}

func readSeedFile(path string) ([]seedCustomer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var customers []seedCustomer
	return customers, json.Unmarshal(b, &customers)
}

// Seed inserts demo contacts for customers that have none yet and prints a
// development token for each one.
func Seed(
	lc fx.Lifecycle,
	contactService contact.ContactService,
	contactRepo contact.ContactRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
	path string,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()

				if err := contactRepo.EnsureIndexes(ctx); err != nil {
					logger.Error("Failed to ensure contact indexes", zap.Error(err))
					return
				}

				customers, err := readSeedFile(path)
				if err != nil {
					logger.Error("Failed to read seed file", zap.String("path", path), zap.Error(err))
					return
				}

				for _, customer := range customers {
					existing, err := contactService.ListContacts(ctx, customer.CustomerID)
					if err != nil {
						logger.Error("Failed to list contacts", zap.String("customerId", customer.CustomerID), zap.Error(err))
						continue
					}

					if len(existing) > 0 {
						logger.Info("Customer already has contacts, skipping", zap.String("customerId", customer.CustomerID))
					} else {
						created := 0
						for _, in := range customer.Contacts {
							if _, err := contactService.CreateContact(ctx, customer.CustomerID, in); err != nil {
								logger.Warn("Failed to seed contact", zap.String("customerId", customer.CustomerID), zap.Error(err))
								continue
							}
							created++
						}
						logger.Info("Seeded contacts", zap.String("customerId", customer.CustomerID), zap.Int("count", created))
					}

					token, err := utils.GenerateToken(customer.CustomerID, customer.CustomerName, 30*24*time.Hour)
					if err != nil {
						logger.Error("Failed to issue token", zap.Error(err))
						continue
					}
					logger.Info("Development token", zap.String("customerId", customer.CustomerID), zap.String("token", token))
				}

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func main() {
	path := flag.String("file", "cmd/seed/data/contacts.json", "seed file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	utils.SetSecret(cfg.JWTSecret)

	app := fx.New(
		fx.Supply(cfg),
		fx.Provide(
			logger.NewLogger,
			database.NewDatabase,
			database.NewPostgres,
			audit.NewAuditRepository,
			audit.NewAuditService,
			contact.NewContactRepository,
			contact.NewContactService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(func(lc fx.Lifecycle, svc contact.ContactService, repo contact.ContactRepository, logger *zap.Logger, shutdowner fx.Shutdowner) {
			Seed(lc, svc, repo, logger, shutdowner, *path)
		}),
	)

	app.Run()
}
