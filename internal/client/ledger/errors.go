package ledger

import "github.com/dmitrijs2005/melonmail/internal/common"

var (
	ErrUnauthorized = common.ErrUnauthorized
	ErrUnavailable  = common.ErrUnavailable
)
