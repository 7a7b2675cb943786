package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "revora-ledger/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the target database if needed and
// applies the embedded archive schema. Returns a connection bound to the
// target database for the caller to keep.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	scripts, err := sqlScripts(clickhouseFS, "clickhouse")
	if err != nil {
		conn.Close()
		return nil, err
	}
	for _, s := range scripts {
		if err := applyScript(ctx, conn, s); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// ensureDatabase connects without a database selected and issues
// CREATE DATABASE IF NOT EXISTS.
func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		admin.Close()
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return admin.Close()
}

// applyScript runs one migration file statement by statement: the
// ClickHouse driver rejects multiquery Exec.
func applyScript(ctx context.Context, conn *chstore.Conn, s script) error {
	if err := checkQuotedSemicolons(s.sql); err != nil {
		return fmt.Errorf("validate migration %s: %w", s.name, err)
	}
	for _, stmt := range statementsOf(s.sql) {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", s.name, err)
		}
	}
	return nil
}

// statementsOf splits a migration file on semicolons, dropping blank
// lines and -- comments first. The splitter is deliberately naive, which
// puts two rules on the migration files: no semicolons inside string
// literals (checkQuotedSemicolons enforces this) and -- comments only.
func statementsOf(input string) []string {
	var lines []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// checkQuotedSemicolons rejects SQL carrying a semicolon inside a
// single-quoted literal, which the naive splitter would cut in half.
// Doubled quotes ('') are the escape form and stay inside the literal.
func checkQuotedSemicolons(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal breaks the statement splitter")
			}
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
