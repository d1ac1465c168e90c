// Package errors provides structured domain error handling for the graph core.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Shared errors
	CodeNotFound       Code = "NOT_FOUND"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNothingChanged Code = "NOTHING_CHANGED"
	CodeFieldInvalid   Code = "FIELD_INVALID"

	// Identity errors
	CodeHandleInvalid        Code = "HANDLE_INVALID"
	CodeHandleTaken          Code = "HANDLE_TAKEN"
	CodeAlreadyDefault       Code = "IDENTITY_ALREADY_DEFAULT"
	CodeBurnDefaultForbidden Code = "IDENTITY_BURN_DEFAULT_FORBIDDEN"

	// Follow errors
	CodeSelfFollowForbidden Code = "FOLLOW_SELF_FORBIDDEN"

	// Publication errors
	CodeCategoryInvalid Code = "PUBLICATION_CATEGORY_INVALID"

	// Engagement errors
	CodeBadPayment      Code = "ENGAGEMENT_BAD_PAYMENT"
	CodeAlreadyLiked    Code = "ENGAGEMENT_ALREADY_LIKED"
	CodeAlreadyDisliked Code = "ENGAGEMENT_ALREADY_DISLIKED"
	CodePaymentFailed   Code = "ENGAGEMENT_PAYMENT_FAILED"

	// Comment errors
	CodeCommentTargetInvalid Code = "COMMENT_TARGET_INVALID"
)
