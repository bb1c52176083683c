package main

import (
	"bufio"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/ladder-quiz/db/migrations"
	"github.com/gokatarajesh/ladder-quiz/internal/auth"
)

type pgFlags struct {
	host, port, user, password, database, sslMode string
}

func (f pgFlags) dsn() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		f.host, f.port, f.user, f.password, f.database, f.sslMode)
}

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var pg pgFlags

	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Database migrations and operator tooling for ladder-quiz",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&pg.host, "pg-host", getEnv("PG_HOST", "localhost"), "postgres host")
	flags.StringVar(&pg.port, "pg-port", getEnv("PG_PORT", "5432"), "postgres port")
	flags.StringVar(&pg.user, "pg-user", getEnv("PG_USER", ""), "postgres user")
	flags.StringVar(&pg.password, "pg-password", getEnv("PG_PASSWORD", ""), "postgres password")
	flags.StringVar(&pg.database, "pg-database", getEnv("PG_DATABASE", ""), "postgres database")
	flags.StringVar(&pg.sslMode, "pg-ssl-mode", getEnv("PG_SSL_MODE", "disable"), "postgres sslmode")

	cmd.AddCommand(
		newGooseCmd("up", "Apply all pending migrations", &pg, goose.Up),
		newGooseCmd("down", "Roll back the latest migration", &pg, goose.Down),
		newGooseCmd("status", "Print migration status", &pg, goose.Status),
		newHashEditorKeyCmd(),
	)
	return cmd
}

func newGooseCmd(use, short string, pg *pgFlags, run func(db *sql.DB, dir string, opts ...goose.OptionsFunc) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if pg.user == "" || pg.database == "" {
				return fmt.Errorf("PG_USER and PG_DATABASE are required")
			}

			db, err := sql.Open("pgx", pg.dsn())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := db.PingContext(cmd.Context()); err != nil {
				log.Error().Err(err).Str("host", pg.host).Str("port", pg.port).Msg("failed to ping database")
				return err
			}

			log.Info().
				Str("host", pg.host).
				Str("port", pg.port).
				Str("database", pg.database).
				Str("command", use).
				Msg("connected to database")

			goose.SetBaseFS(migrations.FS)
			goose.SetTableName("goose_db_version")
			if err := goose.SetDialect("postgres"); err != nil {
				return err
			}

			if err := run(db, "."); err != nil {
				log.Error().Err(err).Str("command", use).Msg("migration failed")
				return err
			}
			log.Info().Str("command", use).Msg("migration command finished")
			return nil
		},
	}
}

// newHashEditorKeyCmd prints the EDITOR_KEY_HASH value for a key read from the
// argument or, when absent, from stdin.
func newHashEditorKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-editor-key [key]",
		Short: "Print the bcrypt hash to use as EDITOR_KEY_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key: %w", err)
				}
				key = strings.TrimSpace(line)
			}

			hash, err := auth.HashEditorKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
