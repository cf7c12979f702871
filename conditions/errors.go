package conditions

import "errors"

var (
	ErrGroupNotFound        = errors.New("condition group not found")
	ErrConditionNotFound    = errors.New("condition not found")
	ErrDuplicate            = errors.New("already exists")
	ErrUnknownLogicType     = errors.New("unknown logic type")
	ErrUnknownConditionType = errors.New("unknown condition type")
	ErrInvalidCondition     = errors.New("invalid condition")
	ErrIncomparable         = errors.New("values are not comparable")
)
