package xe

import (
	"errors"

	"github.com/go-orz/orz"
)

var (
	ErrInvalidParams   = orz.NewError(10400, "invalid params")
	ErrValidation      = orz.NewError(10422, "validation failed")
	ErrAccountNotFound = orz.NewError(10404, "account not found")
	ErrRecordNotFound  = orz.NewError(10405, "no record for this day")
	ErrParse           = orz.NewError(10406, "unparsable row")
	ErrSerialization   = orz.NewError(10407, "unreadable data")
)

// IsNotFound 账户或记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrRecordNotFound)
}
