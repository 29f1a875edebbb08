// Package smtp доставляет письма с ответами на обращения через SMTP-сервер с STARTTLS.
package smtp

import "io"

// Session одна авторизованная SMTP-сессия: конверт письма, тело и завершение.
type Session interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает сессии от имени ящика, указанного в config.SMTP.
type Dialer interface {
	Dial() (Session, error)
	// From адрес отправителя в заголовке From и в MAIL FROM.
	From() string
}
