package companyerrors

import (
	"net/http"

	"go-leave/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrCompanyNotFound = apperror.New(
		apperror.CodeNotFound,
		"company not found",
		http.StatusNotFound,
	)
	ErrInvalidWorkWeek = apperror.New(
		apperror.CodeInvalidInput,
		"work week must contain at least one working day",
		http.StatusBadRequest,
	)
	ErrInvalidWorkTime = apperror.New(
		apperror.CodeInvalidInput,
		"work time must be in HH:MM format",
		http.StatusBadRequest,
	)
	ErrInvalidHolidayDate = apperror.New(
		apperror.CodeInvalidInput,
		"invalid holiday date, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
)
