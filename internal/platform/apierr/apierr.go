// Package apierr は各機能パッケージ共通のエラーモデル。
// 以前は assets/lends ごとに同型の APIError を持っていたのをここに寄せた。
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	mysql "github.com/go-sql-driver/mysql"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnavailable     Code = "UNAVAILABLE"      // 在庫なし
	CodeIneligible      Code = "INELIGIBLE"       // 会員ステータス不可
	CodeQuotaExceeded   Code = "QUOTA_EXCEEDED"   // 貸出上限
	CodeHasActiveLoans  Code = "HAS_ACTIVE_LOANS" // 貸出中のため削除不可
	CodeConflict        Code = "CONFLICT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeInternal        Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func Invalid(msg string) *Error         { return &Error{Code: CodeInvalidArgument, Message: msg} }
func NotFound(what string) *Error       { return &Error{Code: CodeNotFound, Message: what + " not found"} }
func Unavailable(what string) *Error    { return &Error{Code: CodeUnavailable, Message: what + " has no available copy"} }
func Ineligible(msg string) *Error      { return &Error{Code: CodeIneligible, Message: msg} }
func QuotaExceeded(msg string) *Error   { return &Error{Code: CodeQuotaExceeded, Message: msg} }
func HasActiveLoans(what string) *Error { return &Error{Code: CodeHasActiveLoans, Message: what + " has loans in progress"} }
func Conflict(msg string) *Error        { return &Error{Code: CodeConflict, Message: msg} }
func Unauthenticated(msg string) *Error { return &Error{Code: CodeUnauthenticated, Message: msg} }
func Internal(msg string) *Error        { return &Error{Code: CodeInternal, Message: msg} }

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsDomain: *Error で、かつ INTERNAL 以外
func IsDomain(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code != CodeInternal
}

func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeInvalidArgument, CodeUnavailable, CodeIneligible, CodeQuotaExceeded, CodeHasActiveLoans:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ===== MySQL エラー番号 =====

const (
	mysqlDuplicateKey    = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

func mysqlNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func IsDuplicateKey(err error) bool     { return mysqlNumber(err) == mysqlDuplicateKey }
func IsRowReferenced(err error) bool    { return mysqlNumber(err) == mysqlRowIsReferenced }
func IsMissingReference(err error) bool { return mysqlNumber(err) == mysqlNoReferencedRow }
