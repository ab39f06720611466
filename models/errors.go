package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

// ErrStoreUnavailable marks failures where the database could not be reached at all,
// as opposed to a rejected statement.
var ErrStoreUnavailable = errors.New("store unavailable")

func storeError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
