package policyerrors

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
	ErrLeaveTypeNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave type not found",
		http.StatusNotFound,
	)
	ErrDuplicateLeaveTypeCode = apperror.New(
		apperror.CodeConflict,
		"leave type code already exists for this company",
		http.StatusConflict,
	)
	ErrLeaveRuleNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave rule not found",
		http.StatusNotFound,
	)
	ErrInvalidRuleConfig = apperror.New(
		apperror.CodeInvalidInput,
		"rule config does not match the rule type",
		http.StatusBadRequest,
	)
	ErrPolicyNotFound = apperror.New(
		apperror.CodeNotFound,
		"no active constraint policy for this company",
		http.StatusNotFound,
	)
	ErrInvalidPolicyConfig = apperror.New(
		apperror.CodeInvalidInput,
		"invalid constraint policy configuration",
		http.StatusBadRequest,
	)
)
