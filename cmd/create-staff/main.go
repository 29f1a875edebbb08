// Команда create-staff создаёт учётную запись сотрудника или администратора.
//
//	CONFIG_PATH=config/local.yaml STAFF_PASSWORD=... create-staff -email staff@example.com -role staff
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/magabrotheeeer/coaching-platform/internal/config"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/coaching-platform/internal/lib/sl"
	"github.com/magabrotheeeer/coaching-platform/internal/models"
	authservice "github.com/magabrotheeeer/coaching-platform/internal/services/auth"
	"github.com/magabrotheeeer/coaching-platform/internal/storage/repository"
)

func main() {
	email := flag.String("email", "", "staff email")
	role := flag.String("role", models.RoleStaff, "role: staff or admin")
	flag.Parse()

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rawPassword := os.Getenv("STAFF_PASSWORD")
	if *email == "" || rawPassword == "" {
		logger.Error("email flag and STAFF_PASSWORD env are required")
		os.Exit(2)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Публикация событий для сотрудников не нужна.
	service := authservice.NewAuthService(db, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL), nil, logger)
	uid, err := service.CreateStaff(ctx, *email, rawPassword, *role)
	if err != nil {
		logger.Error("failed to create staff identity", sl.Err(err))
		os.Exit(1)
	}
	logger.Info("staff identity created", slog.String("uid", uid), slog.String("role", *role))
}
