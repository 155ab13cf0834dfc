package persistence

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/navneeth/viralvibes/infrastructure/configuration"
	"github.com/navneeth/viralvibes/infrastructure/logger"
)

func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql

	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			WithField("port", cfg.Port).
			Error("Error while converting postgres port to int")
		return nil, err
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=public",
		cfg.User,
		cfg.Password,
		cfg.Host,
		port,
		cfg.Name,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while connecting to postgres")
		return nil, err
	}
	db.SetConnMaxIdleTime(20 * time.Second)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Minute * 5)

	return db, nil
}
