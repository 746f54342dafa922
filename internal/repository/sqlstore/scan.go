package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/egannguyen/ecommerce-orders/internal/entity"
)

// SQLite drivers hand timestamps back either as time.Time or as text depending on the
// driver and the declared column type.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// nullTime scans a nullable timestamp from any supported driver.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (n *nullTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}

func (n nullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// utc normalises times written to storage.
func utc(t time.Time) time.Time { return t.UTC() }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// jsonAddress stores an Address as JSON text (JSONB on Postgres).
type jsonAddress struct {
	entity.Address
}

func (a jsonAddress) Value() (driver.Value, error) {
	raw, err := json.Marshal(a.Address)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (a *jsonAddress) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), &a.Address)
	case []byte:
		return json.Unmarshal(v, &a.Address)
	default:
		return fmt.Errorf("unsupported address type %T", src)
	}
}

func notFoundOr(err error, entityName string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return entity.NewNotFoundError(entityName, id)
	}
	return err
}
