package provider

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ошибки внешнего сервиса курсов
type ErrorKind int

const (
	// NetworkError сервис недоступен: таймаут, отказ соединения, DNS
	NetworkError ErrorKind = iota + 1
	// InvalidCode сервис отверг код валюты
	InvalidCode
	// UpstreamError сервис вернул собственную ошибку или некорректный ответ
	UpstreamError
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkError:
		return "network_error"
	case InvalidCode:
		return "invalid_code"
	case UpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// ProviderError ошибка клиента курсов с указанием вида
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Kind == NetworkError {
		return fmt.Sprintf("Network error: %s", e.Message)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// KindOf возвращает вид ошибки провайдера или 0, если err не ProviderError
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return 0
}

// IsClientError сообщает, что запрос отклонен из-за входных данных или ответа провайдера
func IsClientError(err error) bool {
	kind := KindOf(err)
	return kind == InvalidCode || kind == UpstreamError
}

func networkError(err error) *ProviderError {
	return &ProviderError{Kind: NetworkError, Message: err.Error(), Err: err}
}

// classify переводит error-type из ответа провайдера в вид ошибки.
// Исходная строка провайдера сохраняется в Message.
func classify(errorType string) *ProviderError {
	switch errorType {
	case "unsupported-code", "unknown-code", "malformed-request":
		return &ProviderError{Kind: InvalidCode, Message: errorType}
	case "":
		return &ProviderError{Kind: UpstreamError, Message: "unexpected response from rate provider"}
	default:
		return &ProviderError{Kind: UpstreamError, Message: errorType}
	}
}
