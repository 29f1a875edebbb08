package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound запись не существует (возможно, уже удалена).
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition запрещённый переход статуса обращения.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrPartialDelete каскадное удаление ответов не завершилось, обращение не удалено.
	ErrPartialDelete = errors.New("partial delete failure")
	// ErrConflict запись изменилась между чтением и условной записью.
	ErrConflict = errors.New("concurrent modification")
	// ErrIdentityNotFound учётная запись в провайдере идентификации отсутствует.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrEmptyReply текст ответа пуст.
	ErrEmptyReply = errors.New("reply content is empty")
	// ErrInvalidStatus значение статуса не входит в Unread, Read, Replied.
	ErrInvalidStatus = errors.New("invalid status value")
	// ErrInvalidInput поле формы пусто после очистки разметки.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists учётная запись с таким email уже есть.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TransitionError описывает отклонённый переход статуса.
type TransitionError struct {
	From ContactStatus
	To   ContactStatus
}

func (e *TransitionError) Error() string {
	if e.From == StatusReplied {
		return "messages that have been replied to cannot be marked as unread or read"
	}
	return fmt.Sprintf("cannot change status from %s to %s", e.From, e.To)
}

// Is позволяет сопоставлять ошибку с ErrInvalidTransition через errors.Is.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// PartialDeleteError оборачивает причину незавершённого каскадного удаления.
type PartialDeleteError struct {
	SubmissionID string
	Err          error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete of submission %s incomplete, retry: %v", e.SubmissionID, e.Err)
}

func (e *PartialDeleteError) Unwrap() error {
	return e.Err
}

// Is позволяет сопоставлять ошибку с ErrPartialDelete через errors.Is.
func (e *PartialDeleteError) Is(target error) bool {
	return target == ErrPartialDelete
}
