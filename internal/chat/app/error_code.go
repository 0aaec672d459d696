package app

import (
	"errors"

	"community_chat_service/internal/chat/domain"

	"github.com/gofiber/fiber/v2"
)

// ErrorCode map a use case error to its HTTP status and stable code
func ErrorCode(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrNotActive):
		return fiber.StatusConflict, "not_active"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return fiber.StatusPaymentRequired, "quota_exceeded"
	case errors.Is(err, domain.ErrEmptyDraft):
		return fiber.StatusBadRequest, "empty_draft"
	case errors.Is(err, domain.ErrInvalidKind):
		return fiber.StatusBadRequest, "invalid_kind"
	case errors.Is(err, domain.ErrInvalidBooking):
		return fiber.StatusBadRequest, "invalid_booking"
	case errors.Is(err, domain.ErrAlreadyExists):
		return fiber.StatusConflict, "already_exists"
	}
	return fiber.StatusInternalServerError, "internal"
}
