package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"

	// Синхронизация сделок
	RemoteFetchFailed    failure.ErrorCode = "RemoteFetchFailed"    // CRM не отдала список сделок, проход прерван
	EnrichmentAuthFailed failure.ErrorCode = "EnrichmentAuthFailed" // Profitbase не выдал токен
	EnrichmentDataFailed failure.ErrorCode = "EnrichmentDataFailed" // Данные по сделке неполные или битые
	PersistenceFailed    failure.ErrorCode = "PersistenceFailed"
	PassInProgress       failure.ErrorCode = "PassInProgress"

	// Хранилище
	DealNotFound      failure.ErrorCode = "DealNotFound"
	DealAlreadyExists failure.ErrorCode = "DealAlreadyExists"

	InvalidConfig     failure.ErrorCode = "InvalidConfig"
	InvalidProject    failure.ErrorCode = "InvalidProject"
	InvalidObjectType failure.ErrorCode = "InvalidObjectType"
	InvalidDays       failure.ErrorCode = "InvalidDays"
)
