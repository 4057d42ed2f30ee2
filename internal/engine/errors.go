package engine

import (
	"errors"
	"fmt"
)

// ActionError describes why one action of a firing was not applied.
//
// Action errors never abort a cycle. The executor records them as skipped
// actions on the firing and continues with the next action in the list.
type ActionError struct {
	// Code identifies the error category.
	Code ActionErrorCode

	// Message is a human-readable description.
	Message string

	// CardID identifies the card the action targeted.
	CardID string

	// Ref is the dangling column or label id, if any.
	Ref string

	// Err is the underlying store error, if any.
	Err error
}

// ActionErrorCode categorizes action errors.
type ActionErrorCode string

const (
	// ErrCodeCardNotFound indicates the card was deleted or archived before
	// the action ran.
	ErrCodeCardNotFound ActionErrorCode = "CARD_NOT_FOUND"

	// ErrCodeColumnNotFound indicates a move_to_column target no longer exists.
	ErrCodeColumnNotFound ActionErrorCode = "COLUMN_NOT_FOUND"

	// ErrCodeLabelNotFound indicates an add_label id is not a global label.
	ErrCodeLabelNotFound ActionErrorCode = "LABEL_NOT_FOUND"

	// ErrCodeCrossBoardMove indicates a move_to_column target on another board.
	ErrCodeCrossBoardMove ActionErrorCode = "CROSS_BOARD_MOVE"

	// ErrCodeStore indicates the store rejected the mutation.
	ErrCodeStore ActionErrorCode = "STORE_REJECTED"

	// ErrCodePanic indicates an automation panicked and was contained.
	ErrCodePanic ActionErrorCode = "PANIC"
)

// Error implements the error interface.
func (e *ActionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.CardID != "" {
		msg += fmt.Sprintf(" (card=%s)", e.CardID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying store error.
func (e *ActionError) Unwrap() error {
	return e.Err
}

// IsDanglingReference reports whether err is an ActionError caused by a
// column or label that no longer exists. Uses errors.As to handle wrapped errors.
func IsDanglingReference(err error) bool {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeColumnNotFound || ae.Code == ErrCodeLabelNotFound
	}
	return false
}

// IsPanic reports whether err records a contained panic.
func IsPanic(err error) bool {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodePanic
	}
	return false
}

func cardNotFound(cardID string) *ActionError {
	return &ActionError{Code: ErrCodeCardNotFound, Message: "card no longer exists", CardID: cardID}
}

func columnNotFound(cardID, columnID string) *ActionError {
	return &ActionError{
		Code:    ErrCodeColumnNotFound,
		Message: fmt.Sprintf("column %q does not exist", columnID),
		CardID:  cardID,
		Ref:     columnID,
	}
}

func labelNotFound(cardID, labelID string) *ActionError {
	return &ActionError{
		Code:    ErrCodeLabelNotFound,
		Message: fmt.Sprintf("label %q does not exist", labelID),
		CardID:  cardID,
		Ref:     labelID,
	}
}

func crossBoardMove(cardID, columnID string) *ActionError {
	return &ActionError{
		Code:    ErrCodeCrossBoardMove,
		Message: fmt.Sprintf("column %q belongs to a different board", columnID),
		CardID:  cardID,
		Ref:     columnID,
	}
}

func storeRejected(cardID string, err error) *ActionError {
	return &ActionError{Code: ErrCodeStore, Message: "store rejected mutation", CardID: cardID, Err: err}
}

func recoveredPanic(cardID string, v any) *ActionError {
	return &ActionError{Code: ErrCodePanic, Message: fmt.Sprint(v), CardID: cardID}
}
