package leaveerrors

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
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"end date must not be before start date",
		http.StatusBadRequest,
	)
	ErrInvalidReason = apperror.New(
		apperror.CodeInvalidInput,
		"reason must be between 5 and 1000 characters",
		http.StatusBadRequest,
	)
	ErrStartOutOfWindow = apperror.New(
		apperror.CodeInvalidInput,
		"start date must be within 365 days past and 180 days future",
		http.StatusBadRequest,
	)
	ErrInvalidDuration = apperror.New(
		apperror.CodeInvalidInput,
		"requested duration must be between 0 and 90 working days",
		http.StatusBadRequest,
	)
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"employee not found",
		http.StatusNotFound,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrUnknownLeaveType = apperror.New(
		apperror.CodeNotFound,
		"leave type not found for this company",
		http.StatusNotFound,
	)
	ErrLeaveOverlap = apperror.New(
		apperror.CodeConflict,
		"an open or approved request already covers part of this period",
		http.StatusConflict,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeInvalidInput,
		"insufficient leave balance; request fewer days or apply for unpaid leave",
		http.StatusUnprocessableEntity,
	)
	ErrRequestStateChanged = apperror.New(
		apperror.CodeConflict,
		"the request changed while processing; reload and retry",
		http.StatusConflict,
	)
	ErrAlreadyDecided = apperror.New(
		apperror.CodeConflict,
		"the request has already reached a final decision",
		http.StatusConflict,
	)
	ErrNotAuthorizedToDecide = apperror.New(
		apperror.CodeForbidden,
		"you are not authorized to decide this request",
		http.StatusForbidden,
	)
	ErrNotAuthorizedToCancel = apperror.New(
		apperror.CodeForbidden,
		"you are not authorized to cancel this request",
		http.StatusForbidden,
	)
	ErrRejectionReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"a rejection reason is required",
		http.StatusBadRequest,
	)
	ErrNoApproverAvailable = apperror.New(
		apperror.CodeInvalidState,
		"no approver could be resolved; add a manager or an hr employee",
		http.StatusUnprocessableEntity,
	)
)
