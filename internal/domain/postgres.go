package domain

import (
	"fmt"
	"strings"
)

// PGConnection is the Postgres server an integration database points at.
type PGConnection struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// Parameters renders c as the PARAMETERS map of CREATE DATABASE.
func (c PGConnection) Parameters() string {
	return fmt.Sprintf("{'host': %s, 'port': %d, 'database': %s, 'user': %s, 'password': %s}",
		Literal(c.Host), c.Port, Literal(c.Database), Literal(c.User), Literal(c.Password))
}

// Literal renders s as a single-quoted SQL string.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
