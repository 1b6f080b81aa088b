package config

import (
	"fmt"

	pcerrors "pcompress/internal/errors"
)

func errConfigInvalid(msg string) error {
	return fmt.Errorf("%w: %s", pcerrors.ErrConfigInvalid, msg)
}
