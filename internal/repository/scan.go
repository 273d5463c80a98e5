package repository

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/iliyamo/pond-seat-booking/internal/model"
)

// sqlDate scans a DATE column into a day key.  The driver returns
// time.Time when parseTime is enabled and []byte otherwise; both are
// accepted.
type sqlDate struct{ key string }

func (d *sqlDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.key = v.Format(model.DayLayout)
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	case nil:
		d.key = ""
	default:
		return fmt.Errorf("unsupported DATE value %T", src)
	}
	return nil
}

func (d *sqlDate) parse(s string) error {
	if len(s) < len(model.DayLayout) {
		return fmt.Errorf("invalid DATE %q", s)
	}
	t, err := time.Parse(model.DayLayout, s[:len(model.DayLayout)])
	if err != nil {
		return err
	}
	d.key = t.Format(model.DayLayout)
	return nil
}

// Value lets a day key be bound as a query argument.
func (d sqlDate) Value() (driver.Value, error) { return d.key, nil }
