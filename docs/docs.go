// Package docs регистрирует swagger-документ API в swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["Health"], "summary": "Проверка состояния сервиса", "responses": {"200": {"description": "OK"}, "503": {"description": "Зависимость недоступна"}}}},
        "/register": {"post": {"tags": ["Auth"], "summary": "Регистрация клиента", "responses": {"201": {"description": "Пользователь создан"}, "409": {"description": "Email уже занят"}}}},
        "/login": {"post": {"tags": ["Auth"], "summary": "Авторизация пользователя", "responses": {"200": {"description": "JWT и роль"}, "401": {"description": "Неверные учетные данные"}}}},
        "/contact": {"post": {"tags": ["Contact"], "summary": "Отправка формы обратной связи", "responses": {"201": {"description": "Обращение создано"}, "429": {"description": "Слишком много запросов"}}}},
        "/contact/submissions": {"get": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Список обращений", "responses": {"200": {"description": "OK"}}}},
        "/contact/submissions/{id}": {
            "get": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Обращение по id", "responses": {"200": {"description": "OK"}, "404": {"description": "Не найдено"}}},
            "delete": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Удаление обращения с ответами", "responses": {"200": {"description": "OK"}, "503": {"description": "Удаление не завершено"}}}
        },
        "/contact/submissions/{id}/status": {"patch": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Смена статуса", "responses": {"200": {"description": "OK"}, "409": {"description": "Недопустимый переход"}}}},
        "/contact/submissions/{id}/archive": {"patch": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Архивирование", "responses": {"200": {"description": "OK"}}}},
        "/contact/submissions/{id}/replies": {
            "get": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Ответы на обращение", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Ответ на обращение", "responses": {"201": {"description": "Ответ сохранён"}}}
        },
        "/contact/feed": {"get": {"tags": ["Contact"], "security": [{"BearerAuth": []}], "summary": "Живая лента обращений (websocket)", "responses": {"101": {"description": "Switching Protocols"}}}},
        "/billing/webhook": {"post": {"tags": ["Billing"], "summary": "Вебхук Stripe", "responses": {"200": {"description": "Событие принято"}, "400": {"description": "Неверная подпись"}}}},
        "/admin/revenue": {"get": {"tags": ["Billing"], "security": [{"BearerAuth": []}], "summary": "Отчёт MRR", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"description": "Type \"Bearer\" followed by a space and JWT token.", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo метаданные документа, доступные для изменения при старте.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Coaching Platform API",
	Description:      "Форма обратной связи, входящие обращения, регистрация клиентов и учёт подписок",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
