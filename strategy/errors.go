package strategy

import "errors"

// ErrNoMembers indicates that the config carries no membership for the strategy's mode.
var ErrNoMembers = errors.New("no members available for assignment")
