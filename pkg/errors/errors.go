package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrDuplicateKey 唯一约束冲突（由 Repository 从数据库错误转换而来）
var ErrDuplicateKey = errors.New("违反唯一约束")

// Kind 业务错误分类，决定 HTTP 状态码
type Kind string

const (
	KindInvalidInput Kind = "invalid_input" // 调用方可修正的输入问题
	KindForbidden    Kind = "forbidden"     // 权限或账户状态不满足
	KindConflict     Kind = "conflict"      // 与当前状态冲突
	KindNotFound     Kind = "not_found"
)

// AppError 带分类与业务码的错误
// 各 Service 以包级变量声明，调用方用 errors.Is 比较
type AppError struct {
	Kind    Kind
	Code    int
	Message string
}

// New 创建 AppError
func New(kind Kind, code int, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func (e *AppError) Error() string { return e.Message }

// KindOf 返回错误分类；非 AppError 返回空字符串
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// AsAppError 提取 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
