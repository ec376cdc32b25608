package dbx

import (
	"database/sql"
	"time"
)

// Timestamps are stored as INTEGER unix nanoseconds so that ordering and range
// queries work the same on every driver.

func UnixNano(t time.Time) int64 {
	return t.UnixNano()
}

func FromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func NullUnixNano(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func TimePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := FromUnixNano(n.Int64)
	return &t
}

func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func StringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
