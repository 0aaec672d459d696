package errprocess

import (
	"errors"
	"fmt"

	"community_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap log msg with err, then return err wrapped with msg so errors.Is still matches
func Wrap(err error, msg string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	logger.Log.Error(msg, append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", msg, err)
}
