package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StringArray maps to a PostgreSQL text[] column
type StringArray []string

// Value implements driver.Valuer for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	escaped := make([]string, 0, len(a))
	for _, s := range a {
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		escaped = append(escaped, `"`+s+`"`)
	}
	return "{" + strings.Join(escaped, ",") + "}", nil
}

// Scan implements sql.Scanner for StringArray
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return errors.New("type assertion to string failed")
	}

	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	if raw == "" {
		*a = StringArray{}
		return nil
	}

	parts := splitArrayLiteral(raw)
	result := make(StringArray, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, `"`)
		p = strings.ReplaceAll(p, `\"`, `"`)
		p = strings.ReplaceAll(p, `\\`, `\`)
		result = append(result, p)
	}
	*a = result
	return nil
}

// splitArrayLiteral splits a Postgres array literal body on commas that are
// not inside a quoted element
func splitArrayLiteral(s string) []string {
	var parts []string
	var sb strings.Builder
	inQuotes := false
	escaped := false

	for _, r := range s {
		switch {
		case escaped:
			sb.WriteRune(r)
			escaped = false
		case r == '\\':
			sb.WriteRune(r)
			escaped = true
		case r == '"':
			sb.WriteRune(r)
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			parts = append(parts, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	parts = append(parts, sb.String())
	return parts
}

// Competitor is a tracked organization whose marketing emails are ingested.
// The domains column is the source of truth the registry cache flattens.
type Competitor struct {
	ID            string      `gorm:"column:id;primaryKey"`
	OrgID         string      `gorm:"column:org_id;index"`
	Name          string      `gorm:"column:name"`
	Color         *string     `gorm:"column:color"`
	Domains       StringArray `gorm:"column:domains;type:text[]"`
	CategoryNames StringArray `gorm:"column:category_names;type:text[]"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Competitor) TableName() string {
	return "competitors"
}

// CompetitorDomain is one flattened (competitor, domain) pair served by the
// registry cache. Domains are always lower-cased.
type CompetitorDomain struct {
	CompetitorID string
	Domain       string
}

func (d CompetitorDomain) String() string {
	return fmt.Sprintf("%s -> %s", d.Domain, d.CompetitorID)
}
