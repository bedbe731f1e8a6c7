package repository

import (
	"database/sql"
	"time"
)

// nullStringPtr は*stringをsql.NullStringに変換する。nilの場合はNULLとする。
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullStringPtrValue はsql.NullStringを*stringに変換する。NULLの場合はnilを返す。
func nullStringPtrValue(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// nullTimePtr は*time.Timeをsql.NullTimeに変換する。
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
