// Command seed-db loads stalls, products, student profiles, and API keys
// from a JSON fixture into the database. Intended for local development and
// demo environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/canteen-preorder/internal/domain/stall"
	"github.com/xenking/canteen-preorder/internal/domain/student"
	"github.com/xenking/canteen-preorder/internal/handler"
	"github.com/xenking/canteen-preorder/internal/repository"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	PrepMinutes int             `json:"prep_minutes"`
	Available   bool            `json:"available"`
	ImageURL    string          `json:"image_url"`
}

type stallJSON struct {
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	OwnerEmail    string        `json:"owner_email"`
	OwnerPhone    string        `json:"owner_phone"`
	FloorNumber   int           `json:"floor_number"`
	OpeningTime   string        `json:"opening_time"`
	ClosingTime   string        `json:"closing_time"`
	OperatingDays []string      `json:"operating_days"`
	APIKey        string        `json:"api_key"`
	Products      []productJSON `json:"products"`
}

type studentJSON struct {
	UserID     string `json:"user_id"`
	StudentID  string `json:"student_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Year       int    `json:"year"`
	Phone      string `json:"phone"`
	APIKey     string `json:"api_key"`
}

type seedJSON struct {
	Stalls   []stallJSON   `json:"stalls"`
	Students []studentJSON `json:"students"`
}

func main() {
	var (
		databaseURL string
		seedFile    string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "seed-file", "db/seed/seed.json", "path to seed JSON file")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CANTEEN_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("CANTEEN_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedFile, []byte(pepper)); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedFile string, pepper []byte) error {
	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedJSON
	if err := json.Unmarshal(raw, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stalls := repository.NewStallRepository(pool)
	students := repository.NewStudentRepository(pool)

	for _, sj := range seed.Stalls {
		// Seeding is re-runnable: stalls that already exist keep whatever
		// state they accumulated since the first run.
		if existing, err := stalls.GetByOwner(ctx, sj.OwnerEmail); err == nil {
			slog.Info("stall already seeded, skipping",
				slog.String("id", existing.ID), slog.String("name", existing.Name))
			continue
		} else if !errors.Is(err, stall.ErrNotFound) {
			return err
		}

		s := &stall.Stall{
			Name:          sj.Name,
			Description:   sj.Description,
			OwnerEmail:    sj.OwnerEmail,
			OwnerPhone:    sj.OwnerPhone,
			FloorNumber:   sj.FloorNumber,
			OpeningTime:   sj.OpeningTime,
			ClosingTime:   sj.ClosingTime,
			OperatingDays: sj.OperatingDays,
			IsRegistered:  true,
			IsActive:      true,
		}
		if err := stalls.Create(ctx, s); err != nil {
			return err
		}
		slog.Info("seeded stall", slog.String("id", s.ID), slog.String("name", s.Name))

		for _, pj := range sj.Products {
			_, err := pool.Exec(ctx,
				`INSERT INTO products (stall_id, name, description, price, category,
					prep_minutes, is_available, image_url)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				s.ID, pj.Name, pj.Description, pj.Price, pj.Category,
				pj.PrepMinutes, pj.Available, pj.ImageURL,
			)
			if err != nil {
				return errors.Wrapf(err, "seed product %q", pj.Name)
			}
		}

		if sj.APIKey != "" {
			if err := seedAPIKey(ctx, pool, sj.APIKey, "stall", s.ID, s.OwnerEmail, pepper); err != nil {
				return err
			}
		}
	}

	for _, uj := range seed.Students {
		if existing, err := students.GetByEmail(ctx, uj.Email); err == nil {
			slog.Info("student already seeded, skipping", slog.String("user_id", existing.UserID))
			continue
		} else if !errors.Is(err, student.ErrNotFound) {
			return err
		}

		p := &student.Profile{
			UserID:     uj.UserID,
			StudentID:  uj.StudentID,
			Name:       uj.Name,
			Email:      uj.Email,
			Department: uj.Department,
			Year:       uj.Year,
			Phone:      uj.Phone,
		}
		if err := students.Upsert(ctx, p); err != nil {
			return err
		}
		slog.Info("seeded student", slog.String("user_id", p.UserID))

		if uj.APIKey != "" {
			if err := seedAPIKey(ctx, pool, uj.APIKey, "student", p.UserID, p.Email, pepper); err != nil {
				return err
			}
		}
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, key, role, subjectID, email string, pepper []byte) error {
	hash := handler.HashAPIKey(key, pepper)
	_, err := pool.Exec(ctx,
		`INSERT INTO api_keys (key_hash, role, subject_id, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO NOTHING`,
		hash, role, subjectID, email,
	)
	if err != nil {
		return errors.Wrapf(err, "seed api key for %s %s", role, subjectID)
	}
	return nil
}
