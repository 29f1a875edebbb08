package models

import "time"

// PaymentStatus статус оплаты пользователя на уровне приложения.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentActive    PaymentStatus = "active"
	PaymentCancelled PaymentStatus = "cancelled"
)

// FlagLowRecaptchaScore помечает аккаунт, прошедший reCAPTCHA с низкой оценкой.
const FlagLowRecaptchaScore = "low_recaptcha_score"

// Роли учётных записей.
const (
	RoleClient  = "client"
	RoleTrainer = "trainer"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// User профиль пользователя (клиента) в части, относящейся к оплате и тренеру.
type User struct {
	UUID                string
	Email               string
	DisplayName         string
	PaymentStatus       PaymentStatus
	SubscriptionID      *string
	SubscriptionStatus  *string
	SubscriptionEndedAt *time.Time
	AssignedTrainerID   *string
	AssignedTrainerName *string
	AssignedAt          *time.Time
	LastPaymentID       *string
	LastPaymentAmount   *float64
	LastPaymentDate     *time.Time
	RecaptchaScore      *float64
	RecaptchaVerified   bool
	AccountFlags        []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Identity учётная запись для входа (провайдер идентификации).
type Identity struct {
	UUID         string
	Email        string
	PasswordHash string
	Role         string
}

// Trainer тренер из пула для автоматического назначения.
type Trainer struct {
	ID        string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// DummyRegister используется для приёма данных регистрации до валидации.
type DummyRegister struct {
	Email          string `json:"email" validate:"required,email"`
	DisplayName    string `json:"display_name" validate:"required,max=100"`
	Password       string `json:"password" validate:"required,min=8"`
	RecaptchaToken string `json:"recaptcha_token"`
}

// DummyLogin используется для приёма данных входа до валидации.
type DummyLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
