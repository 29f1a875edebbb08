// Package models содержит доменные структуры входящих обращений, пользователей,
// тренеров и платёжных записей, а также доменные ошибки.
package models

import "time"

// ContactStatus статус обращения из формы обратной связи.
type ContactStatus string

const (
	StatusUnread  ContactStatus = "Unread"
	StatusRead    ContactStatus = "Read"
	StatusReplied ContactStatus = "Replied"
)

// Valid сообщает, является ли значение одним из известных статусов.
func (s ContactStatus) Valid() bool {
	switch s {
	case StatusUnread, StatusRead, StatusReplied:
		return true
	}
	return false
}

// CanTransition проверяет допустимость перехода между статусами обращения.
// Replied терминален: из него нельзя вернуться в Unread или Read.
// Переход Replied -> Replied разрешён, чтобы повторный ответ не был ошибкой.
func CanTransition(from, to ContactStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == StatusReplied {
		return to == StatusReplied
	}
	return true
}

// ContactSubmission обращение из публичной формы обратной связи.
// JSON-имена полей совпадают с исторической схемой хранения.
type ContactSubmission struct {
	ID                 string        `json:"id"`
	Name               string        `json:"Name"`
	Email              string        `json:"Email"`
	EmailLower         string        `json:"EmailLower"`
	Phone              *string       `json:"Phone,omitempty"`
	Service            string        `json:"Service"`
	ServiceDisplayText string        `json:"ServiceDisplayText"`
	Message            string        `json:"Message"`
	Newsletter         bool          `json:"Newsletter"`
	Status             ContactStatus `json:"Status"`
	Sent               time.Time     `json:"Sent"`
	LastUpdated        time.Time     `json:"LastUpdated"`
	Replied            bool          `json:"Replied"`
	Archived           bool          `json:"Archived"`
}

// Reply ответ сотрудника на обращение.
type Reply struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	Content      string    `json:"content"`
	SentBy       string    `json:"sentBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ContactFilter фильтр выборки обращений; пустые поля не участвуют в отборе.
type ContactFilter struct {
	Status  ContactStatus
	Service string
}

// DummyContactForm используется для приёма данных публичной формы до валидации.
type DummyContactForm struct {
	Name               string  `json:"name" validate:"required,max=100"`
	Email              string  `json:"email" validate:"required,email"`
	Phone              *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Service            string  `json:"service" validate:"required"`
	ServiceDisplayText string  `json:"service_display_text"`
	Message            string  `json:"message" validate:"required,max=5000"`
	Newsletter         bool    `json:"newsletter"`
}

// ReplyNotification сообщение для отправки ответа автору обращения по почте.
type ReplyNotification struct {
	SubmissionID string `json:"submission_id"`
	To           string `json:"to"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	SentBy       string `json:"sent_by"`
}
