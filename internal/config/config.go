package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// ProgressPolicy — правило согласования трёх путей записи прогресса
// (среднее по команде / синк доски / прямая запись админа).
type ProgressPolicy string

const (
	// среднее по команде авторитетно, пока в команде есть активные участники;
	// синк доски и ручная запись применяются только к заказам без команды
	PolicyTeamFirst ProgressPolicy = "team_first"
	// историческое поведение: побеждает последняя запись, чем бы она ни была
	PolicyLastWrite ProgressPolicy = "last_write"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string

	ProgressPolicy ProgressPolicy

	// SMTP для писем клиентам; пусто — письма только в лог
	SMTPAddr string
	SMTPFrom string
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		ServerPort:     os.Getenv("SERVER_PORT"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		ProgressPolicy: ProgressPolicy(os.Getenv("PROGRESS_POLICY")),
		SMTPAddr:       os.Getenv("SMTP_ADDR"),
		SMTPFrom:       os.Getenv("SMTP_FROM"),
	}

	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}

	switch cfg.ProgressPolicy {
	case PolicyTeamFirst, PolicyLastWrite:
	case "":
		cfg.ProgressPolicy = PolicyTeamFirst
	default:
		log.Fatalf("unknown PROGRESS_POLICY: %s", cfg.ProgressPolicy)
	}

	return cfg
}
