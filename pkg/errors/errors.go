package errors

import "errors"

// ErrStateConflict 条件更新未命中：行状态已被其他操作抢先修改。
// Repository 层在 RowsAffected == 0 时返回，由 Service 层翻译为具体业务错误。
var ErrStateConflict = errors.New("记录状态已变更，请刷新后重试")
